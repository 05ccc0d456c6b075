package workspace

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/forecastd/handler"
	"github.com/dmitrymomot/forecastd/pkg/session"
)

const (
	maxValueBody = 1 << 20
	maxTableBody = 64 << 20
)

type handlers struct {
	store Store
}

type createRequest struct {
	ID string `json:"id" path:"-"`
}

type sessionRequest struct {
	ID string `path:"id" json:"-"`
}

type extendRequest struct {
	ID       string `path:"id" json:"-"`
	Duration string `json:"duration" path:"-"`
}

type entryRequest struct {
	ID  string `path:"id" json:"-"`
	Key string `path:"key" json:"-"`
}

type putValueRequest struct {
	ID    string `path:"id" json:"-"`
	Key   string `path:"key" json:"-"`
	Value any    `json:"value" path:"-"`
}

type putTableRequest struct {
	ID  string `path:"id" json:"-"`
	Key string `path:"key" json:"-"`

	session.Table `path:"-"`
}

type valueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type tableResponse struct {
	Key     string               `json:"key"`
	Columns []string             `json:"columns"`
	Types   []session.ColumnType `json:"types"`
	Rows    int                  `json:"rows"`
}

func (h *handlers) createSession(ctx handler.Context, req createRequest) handler.Response {
	id := h.store.Create(ctx, req.ID)
	sess, err := h.store.Get(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sess.Info(),
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithJSONCode("session_created"),
	)
}

func (h *handlers) getSession(ctx handler.Context, req sessionRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sess.Info(), handler.WithJSONCode("session"))
}

func (h *handlers) removeSession(ctx handler.Context, req sessionRequest) handler.Response {
	if !h.store.Remove(ctx, req.ID) {
		return handler.Error(session.ErrSessionNotFound)
	}
	return handler.Empty()
}

func (h *handlers) extendSession(ctx handler.Context, req extendRequest) handler.Response {
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		return handler.Error(handler.ErrBadRequest.Wrap(err))
	}
	if d <= 0 {
		return handler.Error(fmt.Errorf("%w: %s", session.ErrInvalidDuration, req.Duration))
	}

	if !h.store.Extend(ctx, req.ID, d) {
		return handler.Error(session.ErrSessionNotFound)
	}
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sess.Info(), handler.WithJSONCode("session_extended"))
}

func (h *handlers) putData(ctx handler.Context, req putValueRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	if err := sess.Set(req.Key, req.Value); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(valueResponse{Key: req.Key, Value: req.Value}, handler.WithJSONCode("value_stored"))
}

func (h *handlers) getData(ctx handler.Context, req entryRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	v, found := sess.Get(req.Key)
	if !found {
		return handler.Error(errKeyNotFound)
	}
	return handler.JSON(valueResponse{Key: req.Key, Value: v}, handler.WithJSONCode("value"))
}

func (h *handlers) putTable(ctx handler.Context, req putTableRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}

	tbl := req.Table
	tbl.InferTypes()
	if err := tbl.Validate(); err != nil {
		verr := handler.ValidationError{}
		verr.Add("table", err.Error())
		return handler.Error(verr)
	}

	if err := sess.StoreTable(req.Key, &tbl); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(tableResponse{
		Key:     req.Key,
		Columns: tbl.Columns,
		Types:   tbl.Types,
		Rows:    tbl.NumRows(),
	}, handler.WithJSONCode("table_stored"))
}

func (h *handlers) getTable(ctx handler.Context, req entryRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	tbl, found := sess.GetTable(req.Key)
	if !found {
		return handler.Error(errKeyNotFound)
	}
	return handler.JSON(tbl, handler.WithJSONCode("table"))
}

// removeEntry deletes the key from both namespaces of the session.
func (h *handlers) removeEntry(ctx handler.Context, req entryRequest) handler.Response {
	sess, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	if !sess.RemoveData(req.Key) {
		return handler.Error(errKeyNotFound)
	}
	return handler.Empty()
}

func (h *handlers) stats(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(h.store.Stats(ctx), handler.WithJSONCode("stats"))
}
