package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/dex-client/pkg/batch"
	"github.com/Sternrassler/dex-client/pkg/client"
	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/Sternrassler/dex-client/pkg/metrics"
	"github.com/Sternrassler/dex-client/pkg/query"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	requestTimeout     = 60 * time.Second
	defaultListLimit   = 20
	defaultRandomCount = 1
	defaultLang        = "en"
)

// catalog is the part of the client the HTTP layer uses.
type catalog interface {
	GetCreature(ctx context.Context, idOrName string) (*dex.Creature, error)
	ListCreatures(ctx context.Context, limit, offset int) (*dex.ListPage, error)
	Search(ctx context.Context, q string) ([]*dex.Creature, error)
	FilterByCategory(ctx context.Context, category string, entries []*dex.Creature) ([]*dex.Creature, error)
	SampleRandom(ctx context.Context, count int) ([]*dex.Creature, error)
	ListCategories(ctx context.Context) ([]dex.NamedResource, error)
	GetCategory(ctx context.Context, name string) (*dex.Category, error)
	GetEvolutionChain(ctx context.Context, id int) (*dex.EvolutionChain, error)
	GetAbility(ctx context.Context, nameOrURL string) (*dex.Ability, error)
	AbilityLabels(ctx context.Context, creature *dex.Creature, lang string) []string
}

type server struct {
	catalog catalog
	redis   *redis.Client
	logger  zerolog.Logger
}

func newServer(c catalog, redisClient *redis.Client, logger zerolog.Logger) *server {
	return &server{catalog: c, redis: redisClient, logger: logger}
}

func (s *server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.requestLogger)

	router.Get("/health", healthHandler)
	router.Get("/ready", s.readyHandler)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/creatures", s.listCreatures)
		r.Get("/creatures/{idOrName}", s.getCreature)
		r.Get("/creatures/{idOrName}/abilities", s.creatureAbilities)
		r.Get("/search", s.search)
		r.Get("/random", s.random)
		r.Get("/types", s.listTypes)
		r.Get("/types/{name}", s.getType)
		r.Get("/evolution-chains/{id}", s.getEvolutionChain)
		r.Get("/abilities/{name}", s.getAbility)
	})

	return router
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request served")
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) listCreatures(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	page, err := s.catalog.ListCreatures(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) getCreature(w http.ResponseWriter, r *http.Request) {
	creature, err := s.catalog.GetCreature(r.Context(), chi.URLParam(r, "idOrName"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creature)
}

func (s *server) creatureAbilities(w http.ResponseWriter, r *http.Request) {
	creature, err := s.catalog.GetCreature(r.Context(), chi.URLParam(r, "idOrName"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        creature.ID,
		"name":      creature.Name,
		"abilities": s.catalog.AbilityLabels(r.Context(), creature, langParam(r)),
	})
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	key, err := query.ParseSortKey(params.Get("sort"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	order, err := query.ParseOrder(params.Get("order"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.catalog.Search(r.Context(), params.Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	results, err = s.catalog.FilterByCategory(r.Context(), params.Get("type"), results)
	if err != nil {
		s.writeError(w, err)
		return
	}
	results, err = query.Sort(results, key, order)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *server) random(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", defaultRandomCount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	results, err := s.catalog.SampleRandom(r.Context(), count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *server) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(types),
		"results": types,
	})
}

func (s *server) getType(w http.ResponseWriter, r *http.Request) {
	category, err := s.catalog.GetCategory(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      category.ID,
		"name":    category.Name,
		"color":   dex.TypeColor(category.Name),
		"members": category.Members,
	})
}

func (s *server) getEvolutionChain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, dex.NewValidationError("id", "must be an integer"))
		return
	}
	chain, err := s.catalog.GetEvolutionChain(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     chain.ID,
		"chain":  chain.Chain,
		"stages": chain.Stages(),
	})
}

func (s *server) getAbility(w http.ResponseWriter, r *http.Request) {
	ability, err := s.catalog.GetAbility(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           ability.ID,
		"name":         ability.Name,
		"label":        ability.Label(langParam(r)),
		"short_effect": ability.ShortEffect,
	})
}

// writeError maps the client error taxonomy onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case dex.IsValidationError(err), errors.Is(err, batch.ErrSampleTooLarge):
		status = http.StatusBadRequest
	case client.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Int("status", status).Msg("Catalog request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dex.NewValidationError(name, "must be an integer, got %q", raw)
	}
	return v, nil
}

func langParam(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return defaultLang
}
