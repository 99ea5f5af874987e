// Package server exposes the Controller over a localhost HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"runepause/internal/app"
	"runepause/internal/core/stopwatch"
	"runepause/internal/core/timekeeper"
	"runepause/internal/history"
	"runepause/internal/preferences"
)

// DefaultBasePath prefixes every operation.
const DefaultBasePath = "/v1"

// Controller is the control surface served by the API.
type Controller interface {
	Start(settings preferences.Settings) error
	Stop() error
	Pause() error
	Resume() error
	Interrupt() error
	Skip() error
	Snooze() error
	Status() app.Status
	Settings() preferences.Settings
	UpdateSettings(settings preferences.Settings) error
	Subscribe(buffer int) (*timekeeper.Subscription, error)
	Stopwatch() *stopwatch.Stopwatch
}

// HistoryLister lists finished phases.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
}

// Config for the HTTP API handler.
type Config struct {
	Controller Controller
	// History is optional; without it the history operation reports 503.
	History  HistoryLister
	BasePath string
	Version  string
}

type statusOutput struct {
	Body StatusBody `json:"body"`
}

type settingsOutput struct {
	Body SettingsBody `json:"body"`
}

type stopwatchOutput struct {
	Body StopwatchBody `json:"body"`
}

// New returns an HTTP handler exposing the RunePause API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Controller == nil {
		return nil, errors.New("server: controller is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("RunePause API", version)
	hcfg.OpenAPIPath = basePath + "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerTimer(group, cfg.Controller)
	registerSettings(group, cfg.Controller)
	registerHistory(group, cfg.History)
	registerStopwatch(group, cfg.Controller.Stopwatch())
	registerEvents(group, cfg.Controller)

	return router, nil
}

func handleError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotRunning),
		errors.Is(err, timekeeper.ErrAlreadyRunning),
		errors.Is(err, timekeeper.ErrHardBreak),
		errors.Is(err, timekeeper.ErrNotInBreak),
		errors.Is(err, timekeeper.ErrPhaseEnded),
		errors.Is(err, timekeeper.ErrStopped):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTimer(api huma.API, controller Controller) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Timer status",
	}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
		return &statusOutput{Body: statusBody(controller.Status())}, nil
	})

	controls := []struct {
		id      string
		path    string
		summary string
		action  func() error
	}{
		{"start", "/start", "Start the timer with the current settings", func() error {
			return controller.Start(controller.Settings())
		}},
		{"stop", "/stop", "Stop the timer", controller.Stop},
		{"pause", "/pause", "Pause the countdown", controller.Pause},
		{"resume", "/resume", "Resume the countdown", controller.Resume},
		{"interrupt", "/interrupt", "End the current phase", controller.Interrupt},
		{"skip", "/skip", "Skip the current phase", controller.Skip},
		{"snooze", "/snooze", "Snooze the current break", controller.Snooze},
	}
	for _, control := range controls {
		action := control.action
		huma.Register(api, huma.Operation{
			OperationID: control.id,
			Method:      http.MethodPost,
			Path:        control.path,
			Summary:     control.summary,
			Errors:      []int{http.StatusConflict, http.StatusInternalServerError},
		}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
			if err := action(); err != nil {
				return nil, handleError(err)
			}
			return &statusOutput{Body: statusBody(controller.Status())}, nil
		})
	}
}

func registerSettings(api huma.API, controller Controller) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "Current settings",
	}, func(ctx context.Context, _ *struct{}) (*settingsOutput, error) {
		return &settingsOutput{Body: settingsBody(controller.Settings())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/settings",
		Summary:     "Change settings",
		Description: "Only the fields present in the body change. Saved settings apply to phases that start afterwards.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SettingsPatch `json:"body"`
	}) (*settingsOutput, error) {
		updated := input.Body.Apply(controller.Settings())
		if err := controller.UpdateSettings(updated); err != nil {
			return nil, handleError(err)
		}
		return &settingsOutput{Body: settingsBody(controller.Settings())}, nil
	})
}

func registerHistory(api huma.API, lister HistoryLister) {
	huma.Register(api, huma.Operation{
		OperationID: "list-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Recently finished phases",
		Errors:      []int{http.StatusServiceUnavailable, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []history.Record `json:"body"`
	}, error) {
		if lister == nil {
			return nil, huma.Error503ServiceUnavailable("history is not available")
		}
		records, err := lister.List(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []history.Record `json:"body"`
		}{Body: records}, nil
	})
}

func registerStopwatch(api huma.API, watch *stopwatch.Stopwatch) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stopwatch",
		Method:      http.MethodGet,
		Path:        "/stopwatch",
		Summary:     "Stopwatch status",
	}, func(ctx context.Context, _ *struct{}) (*stopwatchOutput, error) {
		return &stopwatchOutput{Body: stopwatchBody(watch.Status())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-stopwatch",
		Method:      http.MethodPost,
		Path:        "/stopwatch/start",
		Summary:     "Start the stopwatch",
		Description: "A zero duration counts up without a target.",
	}, func(ctx context.Context, input *struct {
		DurationSeconds int `query:"duration_seconds" default:"0" minimum:"0"`
	}) (*stopwatchOutput, error) {
		watch.Start(time.Duration(input.DurationSeconds) * time.Second)
		return &stopwatchOutput{Body: stopwatchBody(watch.Status())}, nil
	})

	for _, control := range []struct {
		id     string
		action func()
	}{
		{"pause", watch.Pause},
		{"resume", watch.Resume},
		{"stop", watch.Stop},
	} {
		action := control.action
		huma.Register(api, huma.Operation{
			OperationID: control.id + "-stopwatch",
			Method:      http.MethodPost,
			Path:        "/stopwatch/" + control.id,
			Summary:     strings.ToUpper(control.id[:1]) + control.id[1:] + " the stopwatch",
		}, func(ctx context.Context, _ *struct{}) (*stopwatchOutput, error) {
			action()
			return &stopwatchOutput{Body: stopwatchBody(watch.Status())}, nil
		})
	}
}
