package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AdamBeresnev/meet-control/internal/httputil"
	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/middleware"
	"github.com/AdamBeresnev/meet-control/internal/service"
	"github.com/AdamBeresnev/meet-control/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const unassignedPlatform = "unassigned"

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// The stream must not go through the session middleware, which buffers
	// the whole response.
	r.Get("/notifications", app.streamNotifications)

	r.Group(func(r chi.Router) {
		r.Use(app.sessions.LoadAndSave)

		r.Post("/athletes", func(w http.ResponseWriter, r *http.Request) {
			var input service.AthleteInput
			if err := httputil.DecodeJSON(w, r, &input); err != nil {
				httputil.BadRequest(w, "Invalid athlete", err)
				return
			}
			athlete, err := app.competitions.CreateAthlete(r.Context(), input)
			if err != nil {
				httputil.Error(w, "Failed to create athlete", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, athlete)
		})

		r.Post("/competitions", func(w http.ResponseWriter, r *http.Request) {
			var input service.CompetitionInput
			if err := httputil.DecodeJSON(w, r, &input); err != nil {
				httputil.BadRequest(w, "Invalid competition", err)
				return
			}
			competition, err := app.competitions.CreateCompetition(r.Context(), input)
			if err != nil {
				httputil.Error(w, "Failed to create competition", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, competition)
		})

		r.Route("/competitions/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				competitionID, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}
				overview, err := app.competitions.GetCompetition(r.Context(), competitionID)
				if err != nil {
					httputil.Error(w, "Failed to get competition", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, overview)
			})

			r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
				competitionID, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}
				var body struct {
					Status meet.CompetitionStatus `json:"status"`
				}
				if err := httputil.DecodeJSON(w, r, &body); err != nil {
					httputil.BadRequest(w, "Invalid status", err)
					return
				}
				competition, err := app.competitions.SetStatus(r.Context(), competitionID, body.Status)
				if err != nil {
					httputil.Error(w, "Failed to set competition status", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, competition)
			})

			r.Post("/platforms", func(w http.ResponseWriter, r *http.Request) {
				competitionID, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}
				var body struct {
					Name string `json:"name"`
					Type string `json:"type"`
				}
				if err := httputil.DecodeJSON(w, r, &body); err != nil {
					httputil.BadRequest(w, "Invalid platform", err)
					return
				}
				platform, err := app.competitions.CreatePlatform(r.Context(), competitionID, body.Name, body.Type)
				if err != nil {
					httputil.Error(w, "Failed to create platform", err)
					return
				}
				httputil.WriteJSON(w, http.StatusCreated, platform)
			})

			r.Delete("/platforms/{pid}", func(w http.ResponseWriter, r *http.Request) {
				competitionID, platformID, ok := platformParams(w, r)
				if !ok {
					return
				}
				if err := app.control.DeletePlatform(r.Context(), competitionID, platformID); err != nil {
					httputil.Error(w, "Failed to delete platform", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Route("/platforms/{pid}/control", app.controlRoutes)
			r.Route("/enrollments", app.enrollmentRoutes)

			r.Get("/results", func(w http.ResponseWriter, r *http.Request) {
				competitionID, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}
				if r.URL.Query().Get("refresh") == "true" {
					if _, err := app.results.Recalculate(r.Context(), competitionID); err != nil {
						httputil.Error(w, "Failed to recalculate results", err)
						return
					}
				}
				competition, results, err := app.results.Results(r.Context(), competitionID)
				if err != nil {
					httputil.Error(w, "Failed to get results", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, map[string]any{
					"competition": competition,
					"results":     results,
				})
			})

			r.Get("/board", func(w http.ResponseWriter, r *http.Request) {
				competitionID, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}
				competition, results, err := app.results.Results(r.Context(), competitionID)
				if err != nil {
					httputil.Error(w, "Failed to get results", err)
					return
				}
				if err := views.Render(w, r, views.ResultsBoard(competition, results)); err != nil {
					httputil.InternalServerError(w, "Failed to render results board", err)
				}
			})
		})

		r.Route("/station", app.stationRoutes)
	})

	return r
}

func (app *application) enrollmentRoutes(r chi.Router) {
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		competitionID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var reg service.Registration
		if err := httputil.DecodeJSON(w, r, &reg); err != nil {
			httputil.BadRequest(w, "Invalid registration", err)
			return
		}
		enrollment, err := app.control.Register(r.Context(), competitionID, reg)
		if err != nil {
			httputil.Error(w, "Failed to register athlete", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, enrollment)
	})

	r.Post("/{eid}/platform", func(w http.ResponseWriter, r *http.Request) {
		competitionID, enrollmentID, ok := enrollmentParams(w, r)
		if !ok {
			return
		}
		var body struct {
			PlatformID *uuid.UUID `json:"platform_id"`
		}
		if err := httputil.DecodeJSON(w, r, &body); err != nil {
			httputil.BadRequest(w, "Invalid platform", err)
			return
		}
		enrollment, err := app.control.AssignPlatform(r.Context(), competitionID, enrollmentID, body.PlatformID)
		if err != nil {
			httputil.Error(w, "Failed to assign platform", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, enrollment)
	})

	r.Post("/{eid}/advance", func(w http.ResponseWriter, r *http.Request) {
		competitionID, enrollmentID, ok := enrollmentParams(w, r)
		if !ok {
			return
		}
		var body struct {
			Weight float64 `json:"weight"`
		}
		if err := httputil.DecodeJSON(w, r, &body); err != nil {
			httputil.BadRequest(w, "Invalid weight", err)
			return
		}
		enrollment, err := app.control.Advance(r.Context(), competitionID, enrollmentID, body.Weight)
		if err != nil {
			httputil.Error(w, "Failed to advance athlete", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, enrollment)
	})

	r.Delete("/{eid}", func(w http.ResponseWriter, r *http.Request) {
		competitionID, enrollmentID, ok := enrollmentParams(w, r)
		if !ok {
			return
		}
		if err := app.control.Withdraw(r.Context(), competitionID, enrollmentID); err != nil {
			httputil.Error(w, "Failed to withdraw athlete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (app *application) controlRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		competitionID, platformID, ok := platformParams(w, r)
		if !ok {
			return
		}
		state, err := app.control.Snapshot(r.Context(), competitionID, platformID)
		if err != nil {
			httputil.Error(w, "Failed to get platform state", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, state)
	})

	r.Post("/select", func(w http.ResponseWriter, r *http.Request) {
		competitionID, platformID, ok := platformParams(w, r)
		if !ok {
			return
		}
		var body struct {
			EnrollmentID uuid.UUID `json:"enrollment_id"`
		}
		if err := httputil.DecodeJSON(w, r, &body); err != nil {
			httputil.BadRequest(w, "Invalid selection", err)
			return
		}
		enrollment, err := app.control.Select(r.Context(), competitionID, platformID, body.EnrollmentID)
		if err != nil {
			httputil.Error(w, "Failed to select athlete", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, enrollment)
	})

	r.Post("/next", func(w http.ResponseWriter, r *http.Request) {
		competitionID, platformID, ok := platformParams(w, r)
		if !ok {
			return
		}
		enrollment, err := app.control.SelectNext(r.Context(), competitionID, platformID)
		if err != nil {
			httputil.Error(w, "Failed to select next athlete", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, enrollment)
	})

	r.Post("/decision", func(w http.ResponseWriter, r *http.Request) {
		competitionID, platformID, ok := platformParams(w, r)
		if !ok {
			return
		}
		app.recordDecision(w, r, competitionID, platformID)
	})

	r.Post("/timer/{action}", func(w http.ResponseWriter, r *http.Request) {
		competitionID, platformID, ok := platformParams(w, r)
		if !ok {
			return
		}

		var state service.TimerState
		var err error
		switch action := chi.URLParam(r, "action"); action {
		case "pause":
			state, err = app.control.PauseTimer(r.Context(), competitionID, platformID)
		case "resume":
			state, err = app.control.ResumeTimer(r.Context(), competitionID, platformID)
		case "reset":
			state, err = app.control.ResetTimer(r.Context(), competitionID, platformID)
		default:
			httputil.NotFound(w, fmt.Sprintf("Unknown timer action %q", action), nil)
			return
		}
		if err != nil {
			httputil.Error(w, "Failed to control timer", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, state)
	})
}

// stationRoutes let a judges' station bind itself to one platform and then
// send decisions without repeating the ids.
func (app *application) stationRoutes(r chi.Router) {
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CompetitionID uuid.UUID `json:"competition_id"`
			PlatformID    string    `json:"platform_id"`
		}
		if err := httputil.DecodeJSON(w, r, &body); err != nil {
			httputil.BadRequest(w, "Invalid station binding", err)
			return
		}
		platformID, err := parsePlatformID(body.PlatformID)
		if err != nil {
			httputil.BadRequest(w, "Invalid platform ID", err)
			return
		}
		state, err := app.control.Snapshot(r.Context(), body.CompetitionID, platformID)
		if err != nil {
			httputil.Error(w, "Failed to bind station", err)
			return
		}

		station := middleware.Station{CompetitionID: body.CompetitionID, PlatformID: platformID}
		if err := middleware.BindStation(r.Context(), app.sessions, station); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, state)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStation(app.sessions))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			station, _ := middleware.StationFromContext(r.Context())
			state, err := app.control.Snapshot(r.Context(), station.CompetitionID, station.PlatformID)
			if err != nil {
				httputil.Error(w, "Failed to get platform state", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, state)
		})

		r.Post("/decision", func(w http.ResponseWriter, r *http.Request) {
			station, _ := middleware.StationFromContext(r.Context())
			app.recordDecision(w, r, station.CompetitionID, station.PlatformID)
		})
	})
}

func (app *application) recordDecision(w http.ResponseWriter, r *http.Request, competitionID, platformID uuid.UUID) {
	var body struct {
		AttemptNumber int                `json:"attempt_number"`
		Result        meet.AttemptResult `json:"result"`
	}
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		httputil.BadRequest(w, "Invalid decision", err)
		return
	}
	attempt, err := app.control.RecordResult(r.Context(), competitionID, platformID, body.AttemptNumber, body.Result)
	if err != nil {
		httputil.Error(w, "Failed to record decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attempt)
}

// streamNotifications sends notifications as Server-Sent Events. The optional
// competition_id query parameter filters the stream.
func (app *application) streamNotifications(w http.ResponseWriter, r *http.Request) {
	var filter uuid.UUID
	if raw := r.URL.Query().Get("competition_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "Invalid competition ID", err)
			return
		}
		filter = id
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "Streaming unsupported", nil)
		return
	}

	notifications, cancel := app.hub.Subscribe(32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-notifications:
			if !open {
				return
			}
			if filter != uuid.Nil && n.CompetitionID != filter {
				continue
			}
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid %s", name), err)
		return uuid.Nil, false
	}
	return id, true
}

func platformParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	competitionID, ok := uuidParam(w, r, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	platformID, err := parsePlatformID(chi.URLParam(r, "pid"))
	if err != nil {
		httputil.BadRequest(w, "Invalid platform ID", err)
		return uuid.Nil, uuid.Nil, false
	}
	return competitionID, platformID, true
}

func enrollmentParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	competitionID, ok := uuidParam(w, r, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	enrollmentID, ok := uuidParam(w, r, "eid")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return competitionID, enrollmentID, true
}

// parsePlatformID maps "unassigned" to the unassigned pool.
func parsePlatformID(raw string) (uuid.UUID, error) {
	if raw == unassignedPlatform {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
