// Package hostsrv is a reference implementation of the host capability API
// backed by local directories, used to run the app without a real host.
package hostsrv

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codedeck/codedeck/internal/config"
	"github.com/codedeck/codedeck/internal/hostapi"
	"github.com/codedeck/codedeck/internal/watcher"
	"github.com/gin-gonic/gin"
)

// Server serves the versioned capability API over HTTP and WebSocket.
type Server struct {
	cfg   *config.Config
	store *store
	hub   *Hub
	locks *lockTable

	mu      sync.Mutex
	current string // record path last opened by a client
}

// NewServer creates a server for the configured folders.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:   cfg,
		store: &store{cfg: cfg},
		hub:   NewHub(),
		locks: newLockTable(),
	}
}

// Hub exposes the event hub so a watcher can feed it.
func (s *Server) Hub() *Hub { return s.hub }

// OnWatchEvent adapts watcher events into hub broadcasts.
func (s *Server) OnWatchEvent(e watcher.Event) {
	s.hub.Broadcast(hostapi.Event{
		Kind:       hostapi.EventKind(e.Kind),
		Collection: e.Collection,
		Path:       e.Path,
	})
}

// Register mounts the capability API on the gin engine.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/api/versions", s.getVersions)

	v1 := r.Group("/api/" + hostapi.Version1)
	{
		v1.GET("/files", s.getFiles)
		v1.GET("/collections", s.getCollections)
		v1.GET("/collections/:key/files", s.getCollectionFiles)
		v1.GET("/file/*path", s.getFile)
		v1.PUT("/file/*path", s.putFile)
		v1.GET("/meta/*path", s.getMeta)
		v1.POST("/lock/*path", s.claimLock)
		v1.DELETE("/lock/*path", s.releaseLock)
		v1.POST("/upload", s.upload)
		v1.GET("/structure", s.getStructure)
		v1.GET("/current", s.getCurrent)
		v1.GET("/ws", s.hub.HandleWS)
	}
}

func (s *Server) getVersions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"versions": []string{hostapi.Version1}})
}

func (s *Server) getFiles(c *gin.Context) {
	entries, err := s.store.listAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries})
}

func (s *Server) getCollections(c *gin.Context) {
	collections := make([]hostapi.CollectionInfo, 0, len(s.cfg.Folders))
	for _, f := range s.cfg.Folders {
		collections = append(collections, hostapi.CollectionInfo{Key: f.Key, Label: f.Key})
	}
	c.JSON(http.StatusOK, gin.H{"collections": collections})
}

func (s *Server) getCollectionFiles(c *gin.Context) {
	folder, ok := s.cfg.FolderByKey(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	entries, err := s.store.listFolder(folder)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries})
}

// recordPath extracts and cleans the wildcard path parameter.
func recordPath(c *gin.Context) string {
	return strings.Trim(c.Param("path"), "/")
}

func fail(c *gin.Context, err error) {
	switch {
	case os.IsNotExist(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case os.IsPermission(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) getFile(c *gin.Context) {
	path := recordPath(c)

	content, err := s.store.read(path)
	if err != nil {
		fail(c, err)
		return
	}

	s.mu.Lock()
	s.current = path
	s.mu.Unlock()

	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

func (s *Server) putFile(c *gin.Context) {
	path := recordPath(c)
	session := c.GetHeader("X-Session")

	if holder, ok := s.locks.allows(path, session); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "file locked", "holder": holder})
		return
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	existed, err := s.store.write(path, content)
	if err != nil {
		fail(c, err)
		return
	}

	kind := hostapi.EventChange
	if !existed {
		kind = hostapi.EventCreate
	}
	s.hub.Broadcast(hostapi.Event{
		Kind:       kind,
		Collection: collectionOf(path),
		Path:       path,
	})

	c.JSON(http.StatusOK, gin.H{"path": path, "size": len(content)})
}

func (s *Server) getMeta(c *gin.Context) {
	path := recordPath(c)

	info, err := s.store.stat(path)
	if err != nil {
		fail(c, err)
		return
	}
	if info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is a directory"})
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	c.JSON(http.StatusOK, hostapi.Metadata{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Second),
		MIME:    mimeType,
	})
}

func (s *Server) claimLock(c *gin.Context) {
	path := recordPath(c)
	session := c.GetHeader("X-Session")

	if holder, ok := s.locks.claim(path, session); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "file locked", "holder": holder})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "holder": session})
}

func (s *Server) releaseLock(c *gin.Context) {
	path := recordPath(c)
	session := c.GetHeader("X-Session")

	if holder, ok := s.locks.release(path, session); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "file locked", "holder": holder})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) upload(c *gin.Context) {
	path := strings.Trim(c.Query("path"), "/")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if _, err := s.store.stat(path); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "file already exists"})
		return
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if _, err := s.store.write(path, content); err != nil {
		fail(c, err)
		return
	}

	s.hub.Broadcast(hostapi.Event{
		Kind:       hostapi.EventCreate,
		Collection: collectionOf(path),
		Path:       path,
	})

	c.JSON(http.StatusCreated, gin.H{"path": path, "size": len(content)})
}

func (s *Server) getStructure(c *gin.Context) {
	structure := hostapi.Structure{Collections: []hostapi.CollectionStructure{}}

	for _, folder := range s.cfg.Folders {
		entries, err := s.store.listFolder(folder)
		if err != nil {
			continue
		}
		extensions := make(map[string]int)
		for _, e := range entries {
			ext := filepath.Ext(e.Path)
			if ext == "" {
				ext = "(none)"
			}
			extensions[ext]++
		}
		structure.Collections = append(structure.Collections, hostapi.CollectionStructure{
			Key:        folder.Key,
			FileCount:  len(entries),
			Extensions: extensions,
		})
	}

	c.JSON(http.StatusOK, structure)
}

func (s *Server) getCurrent(c *gin.Context) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file open"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": current})
}

// collectionOf returns the collection key prefix of a record path.
func collectionOf(path string) string {
	if i := strings.Index(path, "/"); i > 0 {
		return path[:i]
	}
	return path
}
