// Package server exposes the backend HTTP API: notes, persisted chat history,
// the source URL set, notebook storage and execution, and the streaming chat
// websocket.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/config"
	"github.com/BionicLimanov/sapusugi/internal/generate"
	"github.com/BionicLimanov/sapusugi/internal/kernel"
	"github.com/BionicLimanov/sapusugi/internal/logger"
	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/server/store"
)

// Server wires the stores and external backends into HTTP handlers.
//
// Kernel may be nil, in which case notebook execution endpoints report that
// execution is unavailable.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	notebooks *notebook.DirStore
	kernel    kernel.Executor
	generator generate.Generator
}

// New creates a server around the given collaborators.
func New(cfg *config.Config, st *store.Store, notebooks *notebook.DirStore, exec kernel.Executor, gen generate.Generator) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		notebooks: notebooks,
		kernel:    exec,
		generator: gen,
	}
}

// Router builds the gin router with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Logging middleware
	router.Use(requestLogger())

	router.GET("/", s.root)

	router.GET("/notes", s.listNotes)
	router.POST("/notes", s.createNote)
	router.GET("/notes/:id", s.getNote)
	router.PUT("/notes/:id", s.updateNote)
	router.DELETE("/notes/:id", s.deleteNote)

	router.GET("/chat/history", s.chatHistory)
	router.POST("/chat/clear", s.chatClear)
	router.GET("/ws/chat", s.chatSocket)

	router.GET("/sources", s.listSources)
	router.POST("/sources", s.addSources)
	router.DELETE("/sources", s.clearSources)

	router.GET("/nb/list", s.nbList)
	router.GET("/nb/get", s.nbGet)
	router.POST("/nb/save", s.nbSave)
	router.POST("/nb/run_all", s.nbRunAll)
	router.POST("/nb/run_cell", s.nbRunCell)
	router.POST("/nb/suggest", s.nbSuggest)

	router.GET("/jupyter/info", s.jupyterInfo)

	return router
}

func (s *Server) root(c *gin.Context) {
	c.JSON(200, gin.H{
		"name": "sapusugi",
		"endpoints": []string{
			"/notes", "/chat/history", "/chat/clear", "/ws/chat", "/sources",
			"/nb/list", "/nb/get", "/nb/save", "/nb/run_all", "/nb/run_cell",
			"/nb/suggest", "/jupyter/info",
		},
	})
}

// requestLogger logs HTTP requests
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Infof("[%s] %s - %d (%v)", c.Request.Method, path, statusCode, latency)
	}
}
