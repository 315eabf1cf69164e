package server

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"folio/content"
	"folio/feed"
	"folio/models"
	"folio/webhook"
	"folio/writings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

//go:embed static/*
var static embed.FS

// ContentLoader loads the CodeProb entries shown on the blog page
type ContentLoader interface {
	Load(ctx context.Context) ([]models.ContentEntry, error)
}

type ContactSubmitter interface {
	Submit(ctx context.Context, c webhook.Contact) (webhook.Receipt, error)
}

type CertificateVerifier interface {
	Verify(ctx context.Context, level, id string) (webhook.Verification, error)
}

type ServerConfig struct {

	// Feed loader driving the Hacker News columns
	Loader *feed.Loader

	// In-memory copy of what every column currently shows
	Display *feed.Display

	// Broadcast channel to pass feed events to SSE clients
	Broadcaster *Broadcaster

	Writings []models.Writing

	Content ContentLoader

	// Base URL of the CodeProb site, used to build entry links
	SiteURL string

	Contact ContactSubmitter

	Verifier CertificateVerifier

	// Origins allowed to call the API from a browser
	AllowOrigins string

	// How often SSE clients get a keep-alive ping
	PingInterval time.Duration
}

type writingView struct {
	models.Writing
	Slug          string   `json:"slug"`
	FormattedDate string   `json:"formattedDate"`
	TopTags       []string `json:"topTags"`
	Link          string   `json:"link"`
}

type contentView struct {
	models.ContentEntry
	URL           string   `json:"url"`
	Labels        []string `json:"labels"`
	FormattedDate string   `json:"formattedDate"`
}

func categoryView(config *ServerConfig, category feed.Category) models.CategoryView {
	state := config.Loader.State(category)
	return models.CategoryView{
		Category:  string(category),
		Total:     state.Total,
		Cursor:    state.Cursor,
		Loading:   state.Loading,
		Exhausted: state.Exhausted,
		Entries:   config.Display.Entries(category),
	}
}

func feedResponse(config *ServerConfig) models.FeedResponse {
	response := models.FeedResponse{LiveCount: config.Loader.LiveCount()}
	for _, c := range feed.Categories() {
		response.Categories = append(response.Categories, categoryView(config, c))
	}
	return response
}

func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// Returns a fiber.App instance serving the site and its API
func Server(config *ServerConfig) *fiber.App {

	bc := config.Broadcaster
	if config.PingInterval <= 0 {
		config.PingInterval = 5 * time.Second
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "http://localhost:3001"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowOrigins,
		AllowHeaders:     "Cache-Control, Content-Type",
		AllowCredentials: true,
	}))

	// Writings and content change rarely, everything else is live
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			return c.Path() != "/api/writings" && c.Path() != "/api/content"
		},
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Include the query parameters in the cache key
			return c.Request().URI().String()
		},
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/writings", func(c *fiber.Ctx) error {
		posts := writings.Filter(config.Writings, c.Query("category", writings.All))

		views := make([]writingView, 0, len(posts))
		for _, p := range posts {
			views = append(views, writingView{
				Writing:       p,
				Slug:          writings.Slug(p.Category),
				FormattedDate: writings.FormatDate(p.Date),
				TopTags:       writings.TopTags(p),
				Link:          writings.Link(p),
			})
		}
		return c.JSON(views)
	})

	api.Get("/content", func(c *fiber.Ctx) error {
		entries, err := config.Content.Load(c.UserContext())
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error loading content")
			return c.Status(500).SendString("Unable to load content from CodeProb")
		}

		filtered, err := content.Filter(entries, c.Query("type", "all"))
		if err != nil {
			return c.Status(400).SendString(err.Error())
		}

		views := make([]contentView, 0, len(filtered))
		for _, e := range filtered {
			views = append(views, contentView{
				ContentEntry:  e,
				URL:           e.URL(config.SiteURL),
				Labels:        e.Labels(),
				FormattedDate: content.FormatDate(e.DateAdded),
			})
		}
		return c.JSON(views)
	})

	hn := api.Group("/hn")

	hn.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(feedResponse(config))
	})

	hn.Post("/refresh", func(c *fiber.Ctx) error {
		if err := config.Loader.Refresh(c.UserContext()); err != nil {
			return c.Status(500).SendString("Error loading feed")
		}
		return c.JSON(feedResponse(config))
	})

	hn.Delete("/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	hn.Get("/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := make(chan models.FeedEvent, 10)
		alive := time.NewTicker(config.PingInterval)

		bc.AddClient(key, events)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer alive.Stop()
			defer bc.RemoveClient(key)

			if err := writeEvent(w, "init", []byte(key)); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if err := writeEvent(w, "ping", nil); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Infof("Event channel closed for client %s", key)
						return
					}
					data, err := json.Marshal(event)
					if err != nil {
						log.Errorf("Error marshalling event for client %s: %v", key, err)
						continue
					}
					if err := writeEvent(w, event.Kind, data); err != nil {
						log.Warnf("Failed to send %s event to client %s: %v", event.Kind, key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	hn.Get("/:category", func(c *fiber.Ctx) error {
		category, err := feed.ParseCategory(c.Params("category"))
		if err != nil {
			return c.Status(400).SendString(err.Error())
		}
		return c.JSON(categoryView(config, category))
	})

	hn.Post("/:category/next", func(c *fiber.Ctx) error {
		category, err := feed.ParseCategory(c.Params("category"))
		if err != nil {
			return c.Status(400).SendString(err.Error())
		}

		result, err := config.Loader.FetchBatch(c.UserContext(), category)
		if err != nil {
			return c.Status(500).SendString("Error fetching batch")
		}

		appended := result.Appended
		if appended == nil {
			appended = []models.Entry{}
		}
		return c.JSON(models.BatchResponse{
			Category: string(result.Category),
			Skipped:  result.Skipped,
			Cursor:   result.Cursor,
			Total:    result.Total,
			Appended: appended,
		})
	})

	api.Post("/contact", func(c *fiber.Ctx) error {
		var contact webhook.Contact
		if err := c.BodyParser(&contact); err != nil {
			return c.Status(400).SendString("Invalid contact form")
		}

		receipt, err := config.Contact.Submit(c.UserContext(), contact)
		if errors.Is(err, webhook.ErrMissingField) {
			return c.Status(400).SendString(err.Error())
		}
		if err != nil {
			return c.Status(500).SendString("Error sending message")
		}
		return c.JSON(receipt)
	})

	api.Get("/verify", func(c *fiber.Ctx) error {
		result, err := config.Verifier.Verify(c.UserContext(), c.Query("level", "level1"), c.Query("id"))
		switch {
		case errors.Is(err, webhook.ErrEmptyID), errors.Is(err, webhook.ErrUnknownLevel):
			return c.Status(400).SendString(err.Error())
		case err != nil:
			return c.Status(502).SendString("Network error, check whether the webhook is online")
		}
		return c.JSON(result)
	})

	app.Use("/", filesystem.New(filesystem.Config{
		Browse:     false,
		Index:      "index.html",
		Root:       http.FS(static),
		PathPrefix: "/static",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}))

	return app
}
