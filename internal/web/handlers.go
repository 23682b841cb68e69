package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleCollections handles GET /collections.
func (h *Handlers) HandleCollections(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListCollections(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "collections", CollectionsPageData{
		PageData: h.page("Collections", "collections"),
		Items:    result.Items,
	})
}

// HandleCollection handles GET /collections/{name}: one page of chunks in emission order.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, err := ops.ListChunks(r.Context(), h.db, ops.ListChunksInput{
		Collection: name,
		Limit:      parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	coll, err := db.GetCollection(r.Context(), h.db, result.Collection)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "collection", CollectionPageData{
		PageData:   h.page(coll.Name, "collections"),
		Collection: coll,
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleChunk handles GET /collections/{name}/chunks/{id}.
func (h *Handlers) HandleChunk(w http.ResponseWriter, r *http.Request) {
	out, err := ops.FetchChunk(r.Context(), h.db, ops.FetchChunkInput{
		Collection: r.PathValue("name"),
		ID:         r.PathValue("id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	h.renderer.renderPage(w, "chunk", ChunkPageData{
		PageData:     h.page(out.ID, "collections"),
		Chunk:        out,
		RenderedHTML: h.renderer.renderMarkdown(out.Text),
	})
}

// HandleSearch handles GET /search?collection=&q=. Without a query it renders the empty form.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	collection := strings.TrimSpace(r.URL.Query().Get("collection"))
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	data := SearchPageData{
		PageData:   h.page("Search", "search"),
		Collection: collection,
		Query:      query,
		HasQuery:   query != "",
	}

	if !data.HasQuery {
		colls, err := ops.ListCollections(r.Context(), h.db)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Collections = colls.Items
		h.renderer.renderPage(w, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.db, h.cfg, ops.SearchInput{
		Collection: collection,
		Query:      query,
		Limit:      parseIntParam(r, "limit", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	colls, err := ops.ListCollections(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Collections = colls.Items
	data.Collection = result.Collection
	data.Hits = result.Hits
	h.renderer.renderPage(w, "search", data)
}

func (h *Handlers) page(title, nav string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Nav:     nav,
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
