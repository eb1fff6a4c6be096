package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/catalog/internal/eventbus"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// depthGetter is implemented by stores that can hydrate relations to a
// caller-chosen depth.
type depthGetter interface {
	GetEntityDepth(ctx context.Context, id string, depth int) (types.Entity, error)
}

// UpdateValuesRequest is the body of PATCH /entities/{id}/values.
type UpdateValuesRequest struct {
	Values types.Values `json:"values"`
}

// entityResponse always carries a values object, even when empty.
type entityResponse struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Slug           string       `json:"slug"`
	EntityTypeID   string       `json:"entity_type_id"`
	EntityTypeName string       `json:"entity_type_name"`
	Values         types.Values `json:"values"`
}

func toEntityResponse(e types.Entity) entityResponse {
	values := e.Values
	if values == nil {
		values = types.Values{}
	}
	return entityResponse{
		ID:             e.ID,
		Name:           e.Name,
		Slug:           e.Slug,
		EntityTypeID:   e.EntityTypeID,
		EntityTypeName: e.EntityTypeName,
		Values:         values,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListEntityTypes(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEntityTypes(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListEntityTypes(r.Context())
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	if list == nil {
		list = []types.EntityType{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetEntityType(w http.ResponseWriter, r *http.Request) {
	detail, err := s.store.GetEntityType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	if detail.Attributes == nil {
		detail.Attributes = []types.Attribute{}
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListEntities(r.Context(), r.URL.Query().Get("entity_type_id"))
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	out := make([]entityResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEntityResponse(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		e   types.Entity
		err error
	)
	raw := strings.TrimSpace(r.URL.Query().Get("depth"))
	if raw == "" {
		e, err = s.store.GetEntity(r.Context(), id)
	} else {
		depth, convErr := strconv.Atoi(raw)
		if convErr != nil || depth < 0 {
			s.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "depth must be a non-negative integer")
			return
		}
		dg, ok := s.store.(depthGetter)
		if !ok {
			s.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "depth is not supported by this store")
			return
		}
		e, err = dg.GetEntityDepth(r.Context(), id, depth)
	}
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEntityResponse(e))
}

func (s *Server) handleGetEntityBySlug(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetEntityBySlug(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "slug"))
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEntityResponse(e))
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req types.NewEntity
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := s.store.CreateEntity(r.Context(), req)
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	s.publish(r.Context(), eventbus.EntityCreated, e)
	w.Header().Set("Location", "/entities/"+e.ID)
	s.writeJSON(w, http.StatusCreated, toEntityResponse(e))
}

func (s *Server) handleUpdateValues(w http.ResponseWriter, r *http.Request) {
	var req UpdateValuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := s.store.UpdateEntityValues(r.Context(), chi.URLParam(r, "id"), req.Values)
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	s.publish(r.Context(), eventbus.EntityUpdated, e)
	s.writeJSON(w, http.StatusOK, toEntityResponse(e))
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Fetched first so the delete event can carry the entity's type.
	e, err := s.store.GetEntity(r.Context(), id)
	if err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	if err := s.store.DeleteEntity(r.Context(), id); err != nil {
		s.storeErrorToHTTP(w, r, err)
		return
	}
	s.publish(r.Context(), eventbus.EntityDeleted, e)
	w.WriteHeader(http.StatusNoContent)
}
