package app

import (
	"net/http"
	"sync"

	"github.com/codedeck/codedeck/internal/browser"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// notifier pushes repaint hints to connected frontends.
type notifier struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

func newNotifier() *notifier {
	return &notifier{clients: make(map[*websocket.Conn]bool)}
}

func (n *notifier) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer func() {
		n.remove(conn)
		_ = conn.Close()
	}()

	n.mu.Lock()
	n.clients[conn] = true
	n.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (n *notifier) remove(conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients, conn)
}

func (n *notifier) broadcast() {
	n.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(n.clients))
	for client := range n.clients {
		clients = append(clients, client)
	}
	n.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, []byte(`{"type":"update"}`)); err != nil {
			n.remove(client)
		}
	}
}

// treeResponse is the browser panel's render payload.
type treeResponse struct {
	Title string        `json:"title"`
	State browser.State `json:"state"`
	Error string        `json:"error,omitempty"`
	Rows  []browser.Row `json:"rows"`
}

// Register mounts the shell's UI API on the gin engine and wires the
// WebSocket repaint push.
func (s *Shell) Register(r *gin.Engine) {
	push := newNotifier()
	s.OnUpdate(push.broadcast)

	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/tree", s.getTree)
		api.GET("/sections", s.getSections)
		api.POST("/toggle", s.postToggle)
		api.POST("/select", s.postSelect)
		api.GET("/editor", s.getEditor)
		api.POST("/edit", s.postEdit)
		api.POST("/save", s.postSave)
		api.GET("/preview", s.getPreview)
		api.POST("/refresh", s.postRefresh)
		api.GET("/ws", push.handleWS)
	}
}

func (s *Shell) getState(c *gin.Context) {
	conn, connErr := s.Connection()
	c.JSON(http.StatusOK, gin.H{
		"connection": conn,
		"error":      connErr,
		"theme":      s.cfg.Theme,
	})
}

func (s *Shell) getTree(c *gin.Context) {
	b := s.Browser()
	if b == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not connected"})
		return
	}
	c.JSON(http.StatusOK, treeResponse{
		Title: b.Title,
		State: b.State(),
		Error: b.Error(),
		Rows:  b.Rows(s.SelectedPath()),
	})
}

func (s *Shell) getSections(c *gin.Context) {
	selected := s.SelectedPath()
	sections := s.Sections()
	resp := make([]treeResponse, 0, len(sections))
	for _, section := range sections {
		resp = append(resp, treeResponse{
			Title: section.Title,
			State: section.State(),
			Error: section.Error(),
			Rows:  section.Rows(selected),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sections": resp})
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Shell) postToggle(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	expanded := false
	if b := s.Browser(); b != nil {
		expanded = b.Toggle(req.Path)
	}
	for _, section := range s.Sections() {
		if section.Toggle(req.Path) {
			expanded = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"path": req.Path, "expanded": expanded})
}

func (s *Shell) postSelect(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	selected := false
	if b := s.Browser(); b != nil && b.Select(req.Path) {
		selected = true
	}
	if !selected {
		for _, section := range s.Sections() {
			if section.Select(req.Path) {
				selected = true
				break
			}
		}
	}
	if !selected {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file at path"})
		return
	}
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Shell) getEditor(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Snapshot())
}

type editRequest struct {
	Buffer string `json:"buffer"`
}

func (s *Shell) postEdit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	s.session.Edit(req.Buffer)
	c.JSON(http.StatusOK, s.session.Snapshot())
}

// postSave backs both the save button and the keyboard shortcut; the
// session gates concurrent saves itself.
func (s *Shell) postSave(c *gin.Context) {
	s.session.Save(c.Request.Context())
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Shell) getPreview(c *gin.Context) {
	result, err := s.Preview()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Shell) postRefresh(c *gin.Context) {
	s.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "refreshed"})
}
