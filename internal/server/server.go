package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core"
	"github.com/agenthands/evidence/internal/llm"
	"github.com/agenthands/evidence/internal/persona"
	"github.com/agenthands/evidence/internal/source"
	"github.com/agenthands/evidence/internal/store"
)

type Server struct {
	Engine   *core.Engine
	Store    store.Store
	Personas *persona.Generator
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", cfgPath, err)
		cfg = config.Default()
	}

	// Override config with env vars if present
	if envProvider := os.Getenv("LLM_PROVIDER"); envProvider != "" {
		cfg.LLM.Provider = envProvider
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		cfg.LLM.Model = envModel
	}
	if envAPIKey := os.Getenv("LLM_API_KEY"); envAPIKey != "" {
		cfg.LLM.APIKey = envAPIKey
	}
	if envBaseURL := os.Getenv("LLM_BASE_URL"); envBaseURL != "" {
		cfg.LLM.BaseURL = envBaseURL
	}
	if envURI := os.Getenv("MEMGRAPH_URI"); envURI != "" {
		cfg.Store.URI = envURI
	}
	if envUser := os.Getenv("MEMGRAPH_USER"); envUser != "" {
		cfg.Store.User = envUser
	}
	if envPass := os.Getenv("MEMGRAPH_PASSWORD"); envPass != "" {
		cfg.Store.Password = envPass
	}

	var st store.Store
	if cfg.Store.URI != "" {
		mg, err := store.NewMemgraphStore(cfg.Store.URI, cfg.Store.User, cfg.Store.Password)
		if err != nil {
			log.Fatalf("Failed to connect to Memgraph: %v", err)
		}
		if err := mg.BuildIndices(context.Background()); err != nil {
			log.Printf("Warning: failed to build indices: %v", err)
		}
		st = mg
	} else {
		log.Println("No store URI configured, using in-memory store")
		st = store.NewMemoryStore()
	}

	var personas *persona.Generator
	if cfg.LLM.Provider != "" {
		llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
		personas = persona.NewGenerator(llmClient)
	} else {
		log.Println("No LLM provider configured, persona generation disabled")
	}

	return &Server{
		Engine:   core.NewEngine(st, cfg.Engine),
		Store:    st,
		Personas: personas,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/sources", s.IngestSource)
	r.POST("/sources/upload", s.UploadSource)
	r.GET("/sources/:uuid/units", s.GetUnits)
	r.POST("/similarity/report", s.SimilarityReport)
	r.POST("/personas", s.GeneratePersona)

	return r
}

type IngestSourceRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (s *Server) IngestSource(c *gin.Context) {
	var req IngestSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := s.Engine.ProcessSource(c.Request.Context(), req.Name, req.Text)
	if err != nil {
		log.Printf("Failed to process source %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process source"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) UploadSource(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	text, err := source.ExtractText(file.Filename, data)
	if err != nil {
		log.Printf("Failed to extract text from %q: %v", file.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to extract text from upload"})
		return
	}

	result, err := s.Engine.ProcessSource(c.Request.Context(), file.Filename, text)
	if err != nil {
		log.Printf("Failed to process source %q: %v", file.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process source"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetUnits(c *gin.Context) {
	units, err := s.Store.GetUnitsBySource(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		log.Printf("Failed to load units: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load units"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"units": units})
}

type SimilarityReportRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

func (s *Server) SimilarityReport(c *gin.Context) {
	var req SimilarityReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	c.JSON(http.StatusOK, s.Engine.Similarity.CalculateSimilarity(req.Text1, req.Text2))
}

type GeneratePersonaRequest struct {
	SourceUUID string `json:"source_uuid"`
	Name       string `json:"name"`
}

func (s *Server) GeneratePersona(c *gin.Context) {
	if s.Personas == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persona generation is not configured"})
		return
	}

	var req GeneratePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	units, err := s.Store.GetUnitsBySource(c.Request.Context(), req.SourceUUID)
	if err != nil {
		log.Printf("Failed to load units for persona: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load units"})
		return
	}

	p, err := s.Personas.Generate(c.Request.Context(), req.Name, units)
	if err != nil {
		log.Printf("Failed to generate persona: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate persona"})
		return
	}

	c.JSON(http.StatusOK, p)
}
