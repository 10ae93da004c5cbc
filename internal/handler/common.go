package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel values used in the context helpers
    "strconv" // strconv converts strings to numeric types
    "strings" // strings provides trimming helpers

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/adlooper/signage-server/internal/auth"       // auth provides the resolved principal type
    "github.com/adlooper/signage-server/internal/middleware" // middleware defines the context key
)

// getPrincipal extracts the resolved principal placed in the context by
// the bearer middleware.
func getPrincipal(c echo.Context) (auth.Principal, error) {
    v := c.Get(middleware.PrincipalKey)
    p, ok := v.(auth.Principal)
    if !ok {
        return auth.Principal{}, errors.New("no principal in context")
    }
    return p, nil
}

// getUserID returns the authenticated user's id from the context. For a
// device principal this is the registering user.
func getUserID(c echo.Context) (uint64, error) {
    p, err := getPrincipal(c)
    if err != nil {
        return 0, err
    }
    return p.User.ID, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// validTriggerTime reports whether s is a well-formed HH:MM or HH:MM:SS
// wall-clock time, and returns the normalized HH:MM:SS form.
func validTriggerTime(s string) (string, bool) {
    s = strings.TrimSpace(s)
    parts := strings.Split(s, ":")
    if len(parts) == 2 {
        parts = append(parts, "00")
    }
    if len(parts) != 3 {
        return "", false
    }
    limits := [3]int{23, 59, 59}
    for i, p := range parts {
        if len(p) != 2 {
            return "", false
        }
        n, err := strconv.Atoi(p)
        if err != nil || n < 0 || n > limits[i] {
            return "", false
        }
    }
    return strings.Join(parts, ":"), true
}
