package scripting

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	lua "github.com/yuin/gopher-lua"
)

// sqliteRegistry tracks every database handle a script has opened, so
// Engine.Close can close them all. Scripts run on a single Lua lane, so no
// additional locking is required around the handles themselves beyond what
// database/sql already provides.
type sqliteRegistry struct {
	mu   sync.Mutex
	dbs  []*sql.DB
}

func newSQLiteRegistry() *sqliteRegistry {
	return &sqliteRegistry{}
}

func (r *sqliteRegistry) track(db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbs = append(r.dbs, db)
}

func (r *sqliteRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, db := range r.dbs {
		db.Close()
	}
	r.dbs = nil
}

// installSQLite installs the sqlite module: open, and a handle userdata
// exposing exec/query/close. A sqlite.null sentinel round-trips NULL
// column values the same way json.null round-trips JSON null.
func (e *Engine) installSQLite() {
	t := e.ls.NewTable()
	t.RawSetString("open", e.ls.NewFunction(e.luaSQLiteOpen))

	nullUD := e.ls.NewUserData()
	nullUD.Value = sqliteNullUserData{}
	t.RawSetString("null", nullUD)

	e.ls.SetGlobal("sqlite", t)
}

type sqliteNullUserData struct{}

func (e *Engine) luaSQLiteOpen(L *lua.LState) int {
	dsn := L.CheckString(1)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		L.RaiseError("sqlite.open: %s", err.Error())
		return 0
	}
	if err := db.Ping(); err != nil {
		L.RaiseError("sqlite.open: %s", err.Error())
		return 0
	}
	e.sqliteDBs.track(db)

	handle := L.NewTable()
	handle.RawSetString("exec", L.NewFunction(func(L *lua.LState) int {
		L.Remove(1)
		return e.luaSQLiteExec(L, db)
	}))
	handle.RawSetString("query", L.NewFunction(func(L *lua.LState) int {
		L.Remove(1)
		return e.luaSQLiteQuery(L, db)
	}))
	handle.RawSetString("close", L.NewFunction(func(L *lua.LState) int {
		db.Close()
		return 0
	}))
	L.Push(handle)
	return 1
}

func (e *Engine) luaSQLiteExec(L *lua.LState, db *sql.DB) int {
	query := L.CheckString(1)
	args := sqliteArgs(L, 2)

	var (
		res   sqlResult
		execErr error
	)
	ctx := e.context()
	e.Await(func() {
		r, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			execErr = err
			return
		}
		res.lastInsertID, _ = r.LastInsertId()
		res.rowsAffected, _ = r.RowsAffected()
	})
	if execErr != nil {
		L.RaiseError("sqlite.exec: %s", execErr.Error())
		return 0
	}

	out := L.NewTable()
	out.RawSetString("last_insert_id", lua.LNumber(res.lastInsertID))
	out.RawSetString("rows_affected", lua.LNumber(res.rowsAffected))
	L.Push(out)
	return 1
}

type sqlResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (e *Engine) luaSQLiteQuery(L *lua.LState, db *sql.DB) int {
	query := L.CheckString(1)
	args := sqliteArgs(L, 2)

	var (
		rowsOut []map[string]interface{}
		queryErr error
	)
	ctx := e.context()
	e.Await(func() {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			queryErr = err
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			queryErr = err
			return
		}
		for rows.Next() {
			vals := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				queryErr = err
				return
			}
			row := make(map[string]interface{}, len(cols))
			for i, c := range cols {
				row[c] = vals[i]
			}
			rowsOut = append(rowsOut, row)
		}
		queryErr = rows.Err()
	})
	if queryErr != nil {
		L.RaiseError("sqlite.query: %s", queryErr.Error())
		return 0
	}

	out := L.NewTable()
	for i, row := range rowsOut {
		rowTable := L.NewTable()
		for k, v := range row {
			rowTable.RawSetString(k, sqliteValueToLua(L, v))
		}
		out.RawSetInt(i+1, rowTable)
	}
	L.Push(out)
	return 1
}

func sqliteValueToLua(L *lua.LState, v interface{}) lua.LValue {
	switch tv := v.(type) {
	case nil:
		ud := L.NewUserData()
		ud.Value = sqliteNullUserData{}
		return ud
	case int64:
		return lua.LNumber(tv)
	case float64:
		return lua.LNumber(tv)
	case []byte:
		return lua.LString(tv)
	case string:
		return lua.LString(tv)
	case bool:
		return lua.LBool(tv)
	default:
		return lua.LString(fmt.Sprintf("%v", tv))
	}
}

func sqliteArgs(L *lua.LState, from int) []interface{} {
	n := L.GetTop()
	args := make([]interface{}, 0, n-from+1)
	for i := from; i <= n; i++ {
		v := L.Get(i)
		if _, ok := v.(*lua.LUserData); ok {
			args = append(args, nil)
			continue
		}
		switch lv := v.(type) {
		case lua.LNumber:
			args = append(args, float64(lv))
		case lua.LString:
			args = append(args, string(lv))
		case lua.LBool:
			args = append(args, bool(lv))
		default:
			args = append(args, nil)
		}
	}
	return args
}
