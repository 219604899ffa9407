package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tablero/helper"
	"tablero/internal/model"
	"tablero/internal/policy"
	"tablero/internal/query"
)

func tableURL(name string) string {
	return "/ver_tabla/" + url.PathEscape(name)
}

// keyParam returns the composite key segment as it appears in the request
// path, before any unescaping.
func keyParam(c *gin.Context) string {
	return path.Base(c.Request.URL.EscapedPath())
}

func (h *Handler) deny(c *gin.Context, role model.Role, name string, op model.Operation, d policy.Decision) {
	h.logger.Info("Authorization denied",
		zap.String("role", role.String()),
		zap.String("table", name),
		zap.String("operation", string(op)),
		zap.String("reason", d.Reason),
		zap.String("request_id", requestID(c)),
	)

	category := model.FlashDanger
	if d.Reason == policy.ReasonAuditorViews {
		category = model.FlashWarning
	}
	h.redirect(c, category, d.Reason, "/")
}

// ViewTableHandler serves GET /ver_tabla/:table.
func (h *Handler) ViewTableHandler(c *gin.Context) {
	name := c.Param("table")
	role := currentSession(c).Role

	op := model.OperationView
	if len(c.Request.URL.Query()) > 0 {
		op = model.OperationFilter
	}

	d := h.policy.Authorize(role, name, op)
	if !d.Allowed {
		h.deny(c, role, name, op, d)
		return
	}
	h.showTable(c, d)
}

// ViewViewHandler serves GET /ver_vista/:view. Only views are accepted.
func (h *Handler) ViewViewHandler(c *gin.Context) {
	name := c.Param("view")
	role := currentSession(c).Role

	if spec, ok := h.catalog.Lookup(name); ok && !spec.View {
		h.redirect(c, model.FlashDanger, fmt.Sprintf("%s is not a view", name), "/")
		return
	}

	op := model.OperationView
	if len(c.Request.URL.Query()) > 0 {
		op = model.OperationFilter
	}

	d := h.policy.Authorize(role, name, op)
	if !d.Allowed {
		h.deny(c, role, name, op, d)
		return
	}
	h.showTable(c, d)
}

func (h *Handler) showTable(c *gin.Context, d policy.Decision) {
	filters := query.FiltersFromQuery(c.Request.URL.Query())

	stmt, err := query.BuildSelect(d.Table, filters)
	if err != nil {
		h.redirect(c, model.FlashDanger, "Invalid filter: "+err.Error(), "/")
		return
	}

	data, err := h.db.Query(c.Request.Context(), stmt)
	if err != nil {
		h.logger.Error("Failed to query table", zap.Error(err), zap.String("table", d.Table.Name), zap.String("request_id", requestID(c)))
		h.redirect(c, model.FlashDanger, "Error querying the table: "+errorMessage(err), "/")
		return
	}

	role := currentSession(c).Role
	keys := h.catalog.PrimaryKey(d.Table.Name)

	h.render(c, http.StatusOK, "ver_tabla.html", gin.H{
		"table":      d.Table.Name,
		"columns":    data.Columns,
		"rows":       data.Rows,
		"keys":       keys,
		"row_keys":   rowKeys(keys, data),
		"filters":    filters,
		"read_only":  d.ReadOnly,
		"view":       d.Table.View,
		"can_create": policy.Check(role, d.Table, model.OperationCreate).Allowed,
	})
}

// rowKeys encodes the composite key of every row. Rows whose result set
// lacks a key column get an empty key.
func rowKeys(keyCols []string, data model.TableData) []string {
	idx := make([]int, len(keyCols))
	for i, col := range keyCols {
		idx[i] = slices.Index(data.Columns, col)
	}

	keys := make([]string, len(data.Rows))
	for r, row := range data.Rows {
		values := make([]string, len(idx))
		complete := true
		for i, j := range idx {
			if j < 0 || j >= len(row) || row[j] == nil {
				complete = false
				break
			}
			values[i] = helper.FormatValue(row[j])
		}
		if complete {
			keys[r] = query.EncodeCompositeKey(values...)
		}
	}
	return keys
}

// CreateRecordHandler serves POST /crear/:table.
func (h *Handler) CreateRecordHandler(c *gin.Context) {
	name := c.Param("table")
	role := currentSession(c).Role

	d := h.policy.Authorize(role, name, model.OperationCreate)
	if !d.Allowed {
		h.deny(c, role, name, model.OperationCreate, d)
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		h.redirect(c, model.FlashDanger, "Invalid form", tableURL(name))
		return
	}

	stmt, err := query.BuildInsert(d.Table, query.PayloadFromForm(c.Request.PostForm))
	if errors.Is(err, query.ErrNoData) {
		h.redirect(c, model.FlashWarning, "No valid data was provided to insert", tableURL(name))
		return
	}
	h.execute(c, d.Table, stmt, err, "Record created", "Error creating record")
}

// UpdateRecordHandler serves POST /actualizar/:table/:key.
func (h *Handler) UpdateRecordHandler(c *gin.Context) {
	name := c.Param("table")
	role := currentSession(c).Role

	d := h.policy.Authorize(role, name, model.OperationUpdate)
	if !d.Allowed {
		h.deny(c, role, name, model.OperationUpdate, d)
		return
	}

	key, err := query.DecodeCompositeKey(d.Table, keyParam(c))
	if err != nil {
		h.redirect(c, model.FlashDanger, "Invalid record key: "+err.Error(), tableURL(name))
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		h.redirect(c, model.FlashDanger, "Invalid form", tableURL(name))
		return
	}

	stmt, err := query.BuildUpdate(d.Table, query.PayloadFromForm(c.Request.PostForm), key)
	if errors.Is(err, query.ErrNoData) {
		h.redirect(c, model.FlashWarning, "No data was provided to update", tableURL(name))
		return
	}
	h.execute(c, d.Table, stmt, err, "Record updated", "Error updating record")
}

// DeleteRecordHandler serves POST /eliminar/:table/:key.
func (h *Handler) DeleteRecordHandler(c *gin.Context) {
	name := c.Param("table")
	role := currentSession(c).Role

	d := h.policy.Authorize(role, name, model.OperationDelete)
	if !d.Allowed {
		h.deny(c, role, name, model.OperationDelete, d)
		return
	}

	key, err := query.DecodeCompositeKey(d.Table, keyParam(c))
	if err != nil {
		h.redirect(c, model.FlashDanger, "Invalid record key: "+err.Error(), tableURL(name))
		return
	}

	stmt, err := query.BuildDelete(d.Table, key)
	h.execute(c, d.Table, stmt, err, "Record deleted", "Error deleting record")
}

// execute runs a write statement and redirects back to the table with the
// outcome. buildErr is the statement builder's error, if any.
func (h *Handler) execute(c *gin.Context, table model.TableSpec, stmt query.Statement, buildErr error, success, failure string) {
	if buildErr != nil {
		h.redirect(c, model.FlashDanger, failure+": "+buildErr.Error(), tableURL(table.Name))
		return
	}

	n, err := h.db.Exec(c.Request.Context(), stmt)
	if err != nil {
		h.logger.Error(failure, zap.Error(err), zap.String("table", table.Name), zap.String("request_id", requestID(c)))
		h.redirect(c, model.FlashDanger, failure+": "+errorMessage(err), tableURL(table.Name))
		return
	}

	h.logger.Info(success, zap.String("table", table.Name), zap.Int64("rows_affected", n), zap.String("request_id", requestID(c)))
	h.redirect(c, model.FlashSuccess, success, tableURL(table.Name))
}
