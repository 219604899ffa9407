package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tablero/internal/catalog"
	"tablero/internal/model"
	"tablero/internal/policy"
	"tablero/internal/query"
	"tablero/internal/service"
	"tablero/internal/session"
)

type mockDBClient struct {
	queryFunc           func(stmt query.Statement) (model.TableData, error)
	execFunc            func(stmt query.Statement) (int64, error)
	findUserByEmailFunc func(email string) (*model.User, error)
	createUserFunc      func(user model.User) (int64, error)

	queries []query.Statement
	execs   []query.Statement
}

func (m *mockDBClient) Connect(driver, dsn string) error { return nil }
func (m *mockDBClient) Disconnect() error                { return nil }
func (m *mockDBClient) ListTables(ctx context.Context, schema string) ([]string, error) {
	return nil, nil
}
func (m *mockDBClient) ListColumns(ctx context.Context, schema, table string) ([]model.Column, error) {
	return nil, nil
}
func (m *mockDBClient) ListConstraints(ctx context.Context, schema, table string) ([]model.ConstraintInfo, error) {
	return nil, nil
}
func (m *mockDBClient) Query(ctx context.Context, stmt query.Statement) (model.TableData, error) {
	m.queries = append(m.queries, stmt)
	if m.queryFunc != nil {
		return m.queryFunc(stmt)
	}
	return model.TableData{Columns: []string{}, Rows: [][]any{}}, nil
}
func (m *mockDBClient) Exec(ctx context.Context, stmt query.Statement) (int64, error) {
	m.execs = append(m.execs, stmt)
	if m.execFunc != nil {
		return m.execFunc(stmt)
	}
	return 1, nil
}
func (m *mockDBClient) EnsureAccounts(ctx context.Context) error { return nil }
func (m *mockDBClient) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findUserByEmailFunc != nil {
		return m.findUserByEmailFunc(email)
	}
	return nil, service.ErrUserNotFound
}
func (m *mockDBClient) CreateUser(ctx context.Context, user model.User) (int64, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(user)
	}
	return 1, nil
}

func newTestHandler(db service.DBClient) (*Handler, *session.MemoryStore) {
	store := session.NewMemoryStore(100, time.Hour)
	h := New(db, catalog.Default(), store, zap.NewNop(), Options{BcryptCost: bcrypt.MinCost})
	return h, store
}

func sessionFor(role model.Role) *model.Session {
	s := session.New()
	if role != model.RoleUnauthenticated {
		s.UserID = 1
		s.UserName = "tester"
		s.Role = role
	}
	return s
}

// newContext builds a JSON-accepting request carrying sess.
func newContext(method, target string, form url.Values, sess *model.Session, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	c.Request, _ = http.NewRequest(method, target, body)
	if form != nil {
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	c.Request.Header.Set("Accept", "application/json")
	c.Params = params
	c.Set(sessionKey, sess)
	return c, w
}

func storedFlashes(t *testing.T, store session.Store, id string) []model.Flash {
	t.Helper()
	s, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return s.Flashes
}

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/ping", nil)

	Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		role       model.Role
		wantTables []string
		wantViews  []string
	}{
		{"anonymous", model.RoleUnauthenticated, []string{}, []string{}},
		{"auditor", model.RoleAuditor, []string{}, []string{
			"auditoria_completa_ordenes", "auditoria_ordenes_recientes", "auditoria_pagos_altos",
			"historial_compras_clientes", "vista_log_auditoria",
		}},
		{"user", model.RoleUser, []string{
			"payments", "customers", "products", "orders", "categories", "order_details",
		}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestHandler(&mockDBClient{})
			sess := sessionFor(tc.role)
			sess.AddFlash(model.FlashInfo, "hello")
			c, w := newContext("GET", "/", nil, sess, nil)

			h.Index(c)

			require.Equal(t, http.StatusOK, w.Code)
			var body struct {
				Tables  []string      `json:"tables"`
				Views   []string      `json:"views"`
				Flashes []model.Flash `json:"flashes"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantTables, body.Tables)
			assert.Equal(t, tc.wantViews, body.Views)
			assert.Equal(t, []model.Flash{{Category: "info", Message: "hello"}}, body.Flashes)
			assert.Empty(t, sess.Flashes)
		})
	}
}

func TestViewTableHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rows := model.TableData{
		Columns: []string{"order_id", "customer", "status"},
		Rows:    [][]any{{int64(1), "Globex", "pending"}, {int64(2), "Acme", "shipped"}},
	}

	tests := []struct {
		name         string
		role         model.Role
		table        string
		rawQuery     string
		queryFunc    func(stmt query.Statement) (model.TableData, error)
		expectedCode int
		expectedBody string
		expectedSQL  string
		wantFlash    *model.Flash
	}{
		{
			name:         "user reads owned table",
			role:         model.RoleUser,
			table:        "orders",
			queryFunc:    func(query.Statement) (model.TableData, error) { return rows, nil },
			expectedCode: http.StatusOK,
			expectedBody: `"read_only":true`,
			expectedSQL:  "SELECT * FROM orders",
		},
		{
			name:         "admin filters",
			role:         model.RoleAdmin,
			table:        "orders",
			rawQuery:     "status=ship&customer=",
			queryFunc:    func(query.Statement) (model.TableData, error) { return rows, nil },
			expectedCode: http.StatusOK,
			expectedBody: `"read_only":false`,
			expectedSQL:  "SELECT * FROM orders WHERE status::TEXT ILIKE :status",
		},
		{
			name:         "user denied audit log",
			role:         model.RoleUser,
			table:        "log_auditoria",
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "danger", Message: policy.ReasonTableDenied},
		},
		{
			name:         "auditor told to use views",
			role:         model.RoleAuditor,
			table:        "orders",
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "warning", Message: policy.ReasonAuditorViews},
		},
		{
			name:         "auditor reads a view through the table route",
			role:         model.RoleAuditor,
			table:        "vista_log_auditoria",
			expectedCode: http.StatusOK,
			expectedBody: `"view":true`,
			expectedSQL:  "SELECT * FROM vista_log_auditoria",
		},
		{
			name:         "anonymous",
			role:         model.RoleUnauthenticated,
			table:        "orders",
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "danger", Message: policy.ReasonLoginRequired},
		},
		{
			name:         "unknown table",
			role:         model.RoleAdmin,
			table:        "pg_authid",
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "danger", Message: policy.ReasonUnknownTable},
		},
		{
			name:         "injection through filter column",
			role:         model.RoleAdmin,
			table:        "orders",
			rawQuery:     url.Values{"1=1 OR status": {"x"}}.Encode(),
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "danger", Message: `Invalid filter: invalid identifier: column "1=1 OR status"`},
		},
		{
			name:  "query error",
			role:  model.RoleAdmin,
			table: "orders",
			queryFunc: func(query.Statement) (model.TableData, error) {
				return model.TableData{}, &service.QueryError{Err: &pq.Error{Message: `relation "orders" does not exist`}}
			},
			expectedCode: http.StatusFound,
			wantFlash:    &model.Flash{Category: "danger", Message: `Error querying the table: relation "orders" does not exist`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &mockDBClient{queryFunc: tc.queryFunc}
			h, store := newTestHandler(db)
			sess := sessionFor(tc.role)

			target := "/ver_tabla/" + tc.table
			if tc.rawQuery != "" {
				target += "?" + tc.rawQuery
			}
			c, w := newContext("GET", target, nil, sess, gin.Params{{Key: "table", Value: tc.table}})

			h.ViewTableHandler(c)

			assert.Equal(t, tc.expectedCode, w.Code)
			if tc.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tc.expectedBody)
			}
			if tc.expectedSQL != "" {
				require.Len(t, db.queries, 1)
				assert.Equal(t, tc.expectedSQL, db.queries[0].SQL)
			}
			if tc.wantFlash != nil {
				assert.Equal(t, "/", w.Header().Get("Location"))
				assert.Equal(t, []model.Flash{*tc.wantFlash}, storedFlashes(t, store, sess.ID))
			}
			if tc.expectedCode == http.StatusFound && tc.queryFunc == nil {
				assert.Empty(t, db.queries)
			}
		})
	}
}

func TestViewTableHandlerBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := &mockDBClient{queryFunc: func(query.Statement) (model.TableData, error) {
		return model.TableData{
			Columns: []string{"order_id", "product_id", "quantity"},
			Rows:    [][]any{{int64(7), int64(42), int64(3)}},
		}, nil
	}}
	h, _ := newTestHandler(db)
	c, w := newContext("GET", "/ver_tabla/order_details", nil, sessionFor(model.RoleAdmin), gin.Params{{Key: "table", Value: "order_details"}})

	h.ViewTableHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"table": "order_details",
		"columns": ["order_id", "product_id", "quantity"],
		"rows": [[7, 42, 3]],
		"keys": ["order_id", "product_id"],
		"row_keys": ["7,42"],
		"filters": {},
		"read_only": false,
		"view": false,
		"can_create": true,
		"flashes": []
	}`, w.Body.String())
}

func TestViewTableHandlerCanCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		role  model.Role
		table string
		want  string
	}{
		{"user on owned table", model.RoleUser, "orders", `"can_create":true`},
		{"admin on view", model.RoleAdmin, "vista_log_auditoria", `"can_create":false`},
		{"auditor on view", model.RoleAuditor, "vista_log_auditoria", `"can_create":false`},
		{"admin on base table", model.RoleAdmin, "usuarios", `"can_create":true`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestHandler(&mockDBClient{})
			c, w := newContext("GET", "/ver_tabla/"+tc.table, nil, sessionFor(tc.role), gin.Params{{Key: "table", Value: tc.table}})

			h.ViewTableHandler(c)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestViewViewHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		role         model.Role
		view         string
		expectedCode int
		wantMessage  string
	}{
		{"auditor", model.RoleAuditor, "vista_log_auditoria", http.StatusOK, ""},
		{"admin", model.RoleAdmin, "auditoria_pagos_altos", http.StatusOK, ""},
		{"user", model.RoleUser, "vista_log_auditoria", http.StatusFound, policy.ReasonViewRestricted},
		{"base table", model.RoleAuditor, "orders", http.StatusFound, "orders is not a view"},
		{"unknown", model.RoleAdmin, "nope", http.StatusFound, policy.ReasonUnknownTable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &mockDBClient{}
			h, store := newTestHandler(db)
			sess := sessionFor(tc.role)
			c, w := newContext("GET", "/ver_vista/"+tc.view, nil, sess, gin.Params{{Key: "view", Value: tc.view}})

			h.ViewViewHandler(c)

			assert.Equal(t, tc.expectedCode, w.Code)
			if tc.wantMessage == "" {
				assert.Contains(t, w.Body.String(), `"read_only":true`)
				require.Len(t, db.queries, 1)
				return
			}
			assert.Empty(t, db.queries)
			flashes := storedFlashes(t, store, sess.ID)
			require.Len(t, flashes, 1)
			assert.Equal(t, tc.wantMessage, flashes[0].Message)
		})
	}
}

func TestCreateRecordHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		role         model.Role
		table        string
		form         url.Values
		execFunc     func(query.Statement) (int64, error)
		wantLocation string
		wantFlash    model.Flash
		wantSQL      string
	}{
		{
			name:         "admin creates",
			role:         model.RoleAdmin,
			table:        "orders",
			form:         url.Values{"order_id": {"5"}, "customer": {"Initech"}},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "success", Message: "Record created"},
			wantSQL:      "INSERT INTO orders (customer) VALUES (:customer)",
		},
		{
			name:         "user creates on owned table",
			role:         model.RoleUser,
			table:        "order_details",
			form:         url.Values{"order_id": {"1"}, "product_id": {"2"}, "quantity": {"3"}},
			wantLocation: "/ver_tabla/order_details",
			wantFlash:    model.Flash{Category: "success", Message: "Record created"},
			wantSQL:      "INSERT INTO order_details (quantity) VALUES (:quantity)",
		},
		{
			name:         "only key columns",
			role:         model.RoleAdmin,
			table:        "orders",
			form:         url.Values{"order_id": {"5"}},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "warning", Message: "No valid data was provided to insert"},
		},
		{
			name:         "user denied",
			role:         model.RoleUser,
			table:        "usuarios",
			form:         url.Values{"nombre": {"x"}},
			wantLocation: "/",
			wantFlash:    model.Flash{Category: "danger", Message: policy.ReasonCreateDenied},
		},
		{
			name:         "auditor denied",
			role:         model.RoleAuditor,
			table:        "orders",
			form:         url.Values{"customer": {"x"}},
			wantLocation: "/",
			wantFlash:    model.Flash{Category: "danger", Message: policy.ReasonCreateDenied},
		},
		{
			name:         "invalid column",
			role:         model.RoleAdmin,
			table:        "orders",
			form:         url.Values{"customer) VALUES (1); --": {"x"}},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "danger", Message: `Error creating record: invalid identifier: column "customer) VALUES (1); --"`},
		},
		{
			name:  "database rejects",
			role:  model.RoleAdmin,
			table: "orders",
			form:  url.Values{"customer": {"x"}},
			execFunc: func(query.Statement) (int64, error) {
				return 0, &service.QueryError{Err: &pq.Error{Message: "null value in column \"status\""}}
			},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "danger", Message: `Error creating record: null value in column "status"`},
			wantSQL:      "INSERT INTO orders (customer) VALUES (:customer)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &mockDBClient{execFunc: tc.execFunc}
			h, store := newTestHandler(db)
			sess := sessionFor(tc.role)
			c, w := newContext("POST", "/crear/"+tc.table, tc.form, sess, gin.Params{{Key: "table", Value: tc.table}})

			h.CreateRecordHandler(c)
			c.Writer.WriteHeaderNow()

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tc.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, []model.Flash{tc.wantFlash}, storedFlashes(t, store, sess.ID))
			if tc.wantSQL == "" {
				assert.Empty(t, db.execs)
				return
			}
			require.Len(t, db.execs, 1)
			assert.Equal(t, tc.wantSQL, db.execs[0].SQL)
		})
	}
}

func TestUpdateRecordHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		role         model.Role
		table        string
		key          string
		form         url.Values
		wantLocation string
		wantFlash    model.Flash
		wantParams   map[string]any
	}{
		{
			name:         "admin updates composite key row",
			role:         model.RoleAdmin,
			table:        "order_details",
			key:          "7,42",
			form:         url.Values{"order_id": {"1"}, "product_id": {"1"}, "quantity": {"10"}},
			wantLocation: "/ver_tabla/order_details",
			wantFlash:    model.Flash{Category: "success", Message: "Record updated"},
			wantParams:   map[string]any{"quantity": "10", "order_id": "7", "product_id": "42"},
		},
		{
			name:         "user may not update",
			role:         model.RoleUser,
			table:        "orders",
			key:          "1",
			form:         url.Values{"status": {"x"}},
			wantLocation: "/",
			wantFlash:    model.Flash{Category: "danger", Message: policy.ReasonUpdateDenied},
		},
		{
			name:         "key count mismatch",
			role:         model.RoleAdmin,
			table:        "order_details",
			key:          "7",
			form:         url.Values{"quantity": {"10"}},
			wantLocation: "/ver_tabla/order_details",
			wantFlash:    model.Flash{Category: "danger", Message: "Invalid record key: malformed key: order_details expects 2 key values, got 1"},
		},
		{
			name:         "nothing to update",
			role:         model.RoleAdmin,
			table:        "orders",
			key:          "3",
			form:         url.Values{"order_id": {"3"}},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "warning", Message: "No data was provided to update"},
		},
		{
			name:         "view is read-only",
			role:         model.RoleAdmin,
			table:        "vista_log_auditoria",
			key:          "3",
			form:         url.Values{"accion": {"x"}},
			wantLocation: "/",
			wantFlash:    model.Flash{Category: "danger", Message: policy.ReasonViewReadOnly},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &mockDBClient{}
			h, store := newTestHandler(db)
			sess := sessionFor(tc.role)
			c, w := newContext("POST", "/actualizar/"+tc.table+"/"+tc.key, tc.form, sess,
				gin.Params{{Key: "table", Value: tc.table}, {Key: "key", Value: tc.key}})

			h.UpdateRecordHandler(c)
			c.Writer.WriteHeaderNow()

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tc.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, []model.Flash{tc.wantFlash}, storedFlashes(t, store, sess.ID))
			if tc.wantParams == nil {
				assert.Empty(t, db.execs)
				return
			}
			require.Len(t, db.execs, 1)
			assert.Equal(t, tc.wantParams, db.execs[0].Params)
		})
	}
}

func TestDeleteRecordHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		role         model.Role
		table        string
		key          string
		execFunc     func(query.Statement) (int64, error)
		wantLocation string
		wantFlash    model.Flash
		wantSQL      string
	}{
		{
			name:         "admin deletes composite key row",
			role:         model.RoleAdmin,
			table:        "order_details",
			key:          "7,42",
			wantLocation: "/ver_tabla/order_details",
			wantFlash:    model.Flash{Category: "success", Message: "Record deleted"},
			wantSQL:      "DELETE FROM order_details WHERE order_id = :order_id AND product_id = :product_id",
		},
		{
			name:         "auditor may not delete",
			role:         model.RoleAuditor,
			table:        "orders",
			key:          "1",
			wantLocation: "/",
			wantFlash:    model.Flash{Category: "danger", Message: policy.ReasonDeleteDenied},
		},
		{
			name:         "too many key values",
			role:         model.RoleAdmin,
			table:        "orders",
			key:          "1,2",
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "danger", Message: "Invalid record key: malformed key: orders expects 1 key values, got 2"},
		},
		{
			name:  "foreign key violation",
			role:  model.RoleAdmin,
			table: "orders",
			key:   "1",
			execFunc: func(query.Statement) (int64, error) {
				return 0, &service.QueryError{Err: errors.New("violates foreign key constraint")}
			},
			wantLocation: "/ver_tabla/orders",
			wantFlash:    model.Flash{Category: "danger", Message: "Error deleting record: violates foreign key constraint"},
			wantSQL:      "DELETE FROM orders WHERE order_id = :order_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &mockDBClient{execFunc: tc.execFunc}
			h, store := newTestHandler(db)
			sess := sessionFor(tc.role)
			c, w := newContext("POST", "/eliminar/"+tc.table+"/"+tc.key, url.Values{}, sess,
				gin.Params{{Key: "table", Value: tc.table}, {Key: "key", Value: tc.key}})

			h.DeleteRecordHandler(c)
			c.Writer.WriteHeaderNow()

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tc.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, []model.Flash{tc.wantFlash}, storedFlashes(t, store, sess.ID))
			if tc.wantSQL == "" {
				assert.Empty(t, db.execs)
				return
			}
			require.Len(t, db.execs, 1)
			assert.Equal(t, tc.wantSQL, db.execs[0].SQL)
		})
	}
}

func TestRowKeys(t *testing.T) {
	keys := []string{"order_id", "product_id"}

	data := model.TableData{
		Columns: []string{"product_id", "quantity", "order_id"},
		Rows: [][]any{
			{int64(42), int64(1), int64(7)},
			{nil, int64(1), int64(8)},
		},
	}
	assert.Equal(t, []string{"7,42", ""}, rowKeys(keys, data))

	missing := model.TableData{Columns: []string{"quantity"}, Rows: [][]any{{int64(1)}}}
	assert.Equal(t, []string{""}, rowKeys(keys, missing))

	odd := model.TableData{
		Columns: []string{"order_id", "product_id"},
		Rows:    [][]any{{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "a/b,c"}},
	}
	assert.Equal(t, []string{"2024-01-01%2000:00:00,a%2Fb%2Cc"}, rowKeys(keys, odd))
}
