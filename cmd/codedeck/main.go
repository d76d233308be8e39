// Package main is the entry point for the CodeDeck app.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/codedeck/codedeck/internal/app"
	"github.com/codedeck/codedeck/internal/config"
	"github.com/codedeck/codedeck/internal/hostapi"
	"github.com/codedeck/codedeck/internal/hostsrv"
	"github.com/codedeck/codedeck/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// connectTimeout bounds router discovery plus version negotiation.
const connectTimeout = 30 * time.Second

func main() {
	// .env overrides are optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("CodeDeck - content browser and editor")
	log.Printf("Config file: %s", cfg.GetConfigFilePath())
	if cfg.HostURL != "" {
		log.Printf("Host editor: %s", cfg.HostURL)
	} else {
		log.Printf("Serving %d folder(s) with the embedded host:", len(cfg.Folders))
		for i, f := range cfg.Folders {
			log.Printf("  [%d] %s -> %s", i, f.Key, f.Path)
		}
	}
	log.Printf("App starting at: http://localhost:%d", cfg.Port)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	shell := app.NewShell(cfg)
	shell.Register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)

	if cfg.HostURL != "" {
		// Remote host: announce its router right away.
		hostapi.Announce(hostapi.NewHTTPRouter(cfg.HostURL, cfg.Token))
	} else {
		// Embedded host: mount it next to the shell and announce a router
		// pointing back at our own listener once it accepts connections.
		host := hostsrv.NewServer(cfg)
		host.Register(r)

		if cfg.Watch {
			w, err := watcher.New(cfg)
			if err != nil {
				log.Printf("Warning: failed to create file watcher: %v", err)
			} else {
				w.OnChange(host.OnWatchEvent)
				if err := w.Start(); err != nil {
					log.Printf("Warning: failed to start file watcher: %v", err)
				}
				defer func() { _ = w.Stop() }()
				log.Printf("File watcher enabled")
			}
		}

		go func() {
			waitForListener(addr)
			hostapi.Announce(hostapi.NewHTTPRouter(fmt.Sprintf("http://localhost:%d", cfg.Port), cfg.Token))
		}()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := shell.Connect(ctx); err != nil {
			log.Printf("Warning: host connection failed: %v", err)
		}
	}()

	if cfg.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	if err := r.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// waitForListener blocks until the local listener accepts connections.
func waitForListener(addr string) {
	for i := 0; i < 100; i++ {
		conn, err := net.DialTimeout("tcp", "localhost"+addr, time.Second)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Session, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
