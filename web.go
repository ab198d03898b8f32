package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"

	"cropdesk/internal/crop"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir          string
	Publisher        Publisher
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnExport         func(path string)
}

type WebApp struct {
	config       Config
	store        *SessionStore
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		store:      NewSessionStore(),
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

type sessionResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	crop.Snapshot
}

type openSessionRequest struct {
	Filename string          `json:"filename"`
	Viewport crop.Dimensions `json:"viewport"`
}

type pointerRequest struct {
	Type   string       `json:"type"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Handle *crop.Corner `json:"handle,omitempty"`
}

type exportResponse struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
}

// httpError maps engine and store errors onto HTTP statuses. Anything not
// listed is reported as an internal error by the app's error handler.
func httpError(err error) error {
	switch {
	case errors.Is(err, errSessionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, crop.ErrSessionClosed):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, crop.ErrInvalidDimensions), errors.Is(err, crop.ErrDegenerateViewport):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, os.ErrNotExist):
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return err
}

func (a *WebApp) newApp(ctx context.Context) *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.UserContext()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	webapp.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(log.Ctx(ctx).WithContext(c.UserContext()))
		return c.Next()
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(c.UserContext(), a.config.RootDir, a.config.Publisher.OutputDir, a.config.Publisher.Spec)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
		}

		var response struct {
			Name   string          `json:"name"`
			Output crop.OutputSpec `json:"output"`
			Files  []FileInfo      `json:"files"`
		}
		response.Name = dir.Name
		response.Output = a.config.Publisher.Spec
		response.Files = dir.Files

		return c.JSON(response)
	})

	webapp.Post("/api/sessions", func(c *fiber.Ctx) error {
		var request openSessionRequest
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if request.Filename == "" {
			return fiber.NewError(http.StatusBadRequest, "filename is required")
		}

		session, err := a.config.Publisher.Open(c.UserContext(), request.Filename, request.Viewport)
		if err != nil {
			return httpError(err)
		}
		id := a.store.Add(request.Filename, session)
		return c.Status(http.StatusCreated).JSON(sessionResponse{
			ID:       id,
			Filename: request.Filename,
			Snapshot: session.Snapshot(),
		})
	})

	webapp.Get("/api/sessions/:id", func(c *fiber.Ctx) error {
		filename, session, err := a.store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(sessionResponse{ID: c.Params("id"), Filename: filename, Snapshot: session.Snapshot()})
	})

	webapp.Post("/api/sessions/:id/pointer", func(c *fiber.Ctx) error {
		filename, session, err := a.store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var request pointerRequest
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		p := crop.Point{X: request.X, Y: request.Y}
		switch request.Type {
		case "down":
			if request.Handle != nil {
				_, err = session.PointerDownHandle(*request.Handle, p)
			} else {
				_, err = session.PointerDown(p)
			}
		case "move":
			_, err = session.PointerMove(p)
		case "up":
			_, err = session.PointerUp()
		default:
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown pointer event %q", request.Type))
		}
		if err != nil {
			return httpError(err)
		}
		return c.JSON(sessionResponse{ID: c.Params("id"), Filename: filename, Snapshot: session.Snapshot()})
	})

	webapp.Post("/api/sessions/:id/export", func(c *fiber.Ctx) error {
		id := c.Params("id")
		filename, session, err := a.store.Get(id)
		if err != nil {
			return httpError(err)
		}
		path, n, err := a.config.Publisher.Export(c.UserContext(), filename, session)
		if err != nil {
			if errors.Is(err, crop.ErrSessionClosed) {
				a.store.Remove(id)
			}
			return httpError(err)
		}
		a.store.Remove(id)
		if fn := a.config.OnExport; fn != nil {
			fn(path)
		}
		return c.JSON(exportResponse{Filename: filepath.Base(path), Path: path, Bytes: n})
	})

	webapp.Delete("/api/sessions/:id", func(c *fiber.Ctx) error {
		a.store.Remove(c.Params("id"))
		return c.SendStatus(http.StatusNoContent)
	})

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newApp(ctx)

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
		a.store.CloseAll()
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
