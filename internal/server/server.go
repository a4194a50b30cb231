package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core"
	"github.com/agenthands/resolve/internal/core/model"
	"github.com/agenthands/resolve/internal/ingest"
	"github.com/agenthands/resolve/internal/store"
)

// Server exposes the resolution engine over HTTP. A run replaces the held
// result; the read endpoints serve whatever the latest run produced.
type Server struct {
	Config *config.Config

	mu     sync.RWMutex
	result *core.Result
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("Invalid configuration %s: %v", cfgPath, err)
	}
	cfg.ApplyEnv()

	return &Server{Config: cfg}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/resolve", s.Resolve)
	r.GET("/graph", s.Graph)
	r.GET("/clusters", s.Clusters)
	r.GET("/masters", s.Masters)

	return r
}

type ResolveRequest struct {
	Records []struct {
		ID     string            `json:"id"`
		Fields map[string]string `json:"fields"`
	} `json:"records"`
	Mode string `json:"mode"`
}

// Resolve runs the pipeline. With a non-empty records array the request body
// is the source; otherwise the configured ingest source is used.
func (s *Server) Resolve(c *gin.Context) {
	// An empty body is fine: it means "use the configured source".
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	cfg := *s.Config
	if req.Mode != "" {
		cfg.Resolution.Mode = req.Mode
	}

	var src core.RecordSource
	if len(req.Records) > 0 {
		src = requestSource(req)
	} else {
		var err error
		src, err = ingest.New(cfg.Ingest)
		if err != nil {
			log.Printf("Failed to build record source: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	pipeline, err := core.NewPipeline(&cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := pipeline.Run(c.Request.Context(), src)
	if err != nil {
		log.Printf("Resolution run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve records"})
		return
	}

	st, err := store.FromConfig(&cfg)
	if err != nil {
		log.Printf("Failed to open result store: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open result store"})
		return
	}
	defer st.Close(c.Request.Context())

	if err := st.Persist(c.Request.Context(), result); err != nil {
		log.Printf("Failed to persist result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist result"})
		return
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"records":     len(result.Records),
		"edges":       len(result.Edges),
		"clusters":    len(result.Clusters),
		"masters":     len(result.Masters),
		"unclustered": len(result.Unclustered),
		"rejections":  len(result.Rejections),
		"warnings":    result.Warnings,
		"mode":        result.Mode,
	})
}

// Graph returns the similarity graph of the latest run: one node per
// surviving record with its cluster id, plus the scored edges.
func (s *Server) Graph(c *gin.Context) {
	result, ok := s.latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No resolution run yet"})
		return
	}

	nodes := make([]gin.H, 0, len(result.Records))
	for _, rec := range result.Records {
		node := gin.H{"id": rec.ID, "full_name": rec.Raw[model.FieldName]}
		if cid, ok := result.ClusterOf[rec.ID]; ok {
			node["cluster_id"] = cid
		}
		nodes = append(nodes, node)
	}

	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "edges": result.Edges})
}

func (s *Server) Clusters(c *gin.Context) {
	result, ok := s.latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No resolution run yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clusters":    result.Clusters,
		"unclustered": result.Unclustered,
	})
}

func (s *Server) Masters(c *gin.Context) {
	result, ok := s.latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No resolution run yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"masters":     result.Masters,
		"assignments": result.Assignments,
		"same_as":     result.SameAs,
	})
}

func (s *Server) latest() (*core.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.result != nil
}

type recordSliceSource struct {
	records []model.Record
}

func (s recordSliceSource) Load(context.Context) ([]model.Record, error) {
	return s.records, nil
}

func requestSource(req ResolveRequest) core.RecordSource {
	records := make([]model.Record, 0, len(req.Records))
	for _, r := range req.Records {
		rec := model.Record{ID: r.ID, Fields: make(map[model.FieldType]string, len(r.Fields))}
		for k, v := range r.Fields {
			rec.Fields[model.FieldType(k)] = v
		}
		records = append(records, rec)
	}
	return recordSliceSource{records: records}
}
