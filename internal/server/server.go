// Package server exposes the retriever over HTTP. The API is read-only;
// writes go through the CLI.
package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/rag"
)

type Server struct {
	retriever *rag.Retriever
	planner   *rag.Planner
	log       *logger.Logger
}

func New(retriever *rag.Retriever, planner *rag.Planner, log *logger.Logger) *Server {
	return &Server{
		retriever: retriever,
		planner:   planner,
		log:       log.With("component", "Server"),
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/query", s.handleQuery)
		v1.GET("/components/:id", s.handleComponentAtDate)
		v1.GET("/components/:id/history", s.handleHistory)
		v1.GET("/amendments/:number", s.handleAmendment)
		v1.GET("/impact", s.handleImpact)
	}
	return router
}

func (s *Server) Run(addr string) error {
	s.log.Info("http api listening", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Next()
		s.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

type queryRequest struct {
	Question string            `json:"question"`
	Plan     *domain.QueryPlan `json:"plan"`
}

// handleQuery accepts either a pre-classified plan or a natural-language
// question, which is classified by the planner.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var plan domain.QueryPlan
	switch {
	case req.Plan != nil:
		plan = *req.Plan
	case strings.TrimSpace(req.Question) != "":
		plan = s.planner.Plan(req.Question)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "question or plan required"})
		return
	}

	results, err := s.retriever.Retrieve(c.Request.Context(), plan)
	if err != nil {
		s.log.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "results": results})
}

func (s *Server) handleComponentAtDate(c *gin.Context) {
	componentID := c.Param("id")
	date := c.Query("date")

	results, err := s.retriever.PointInTime(c.Request.Context(), componentID, date, 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no version valid at date"})
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.retriever.VersionHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.log.Error("history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"component_id": c.Param("id"), "versions": entries})
}

func (s *Server) handleAmendment(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amendment number must be a positive integer"})
		return
	}
	topK := 100
	if v, err := strconv.Atoi(c.Query("top_k")); err == nil && v > 0 {
		topK = v
	}
	results, err := s.retriever.Provenance(c.Request.Context(), number, "", topK)
	if err != nil {
		s.log.Error("provenance failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provenance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"amendment_number": number, "results": results})
}

func (s *Server) handleImpact(c *gin.Context) {
	scope := c.Query("scope")
	from := c.Query("from")
	to := c.Query("to")
	if scope == "" || from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope, from and to are required"})
		return
	}
	impacted, err := s.retriever.HierarchicalImpact(c.Request.Context(), scope, from, to)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope": scope, "impacted": impacted})
}
