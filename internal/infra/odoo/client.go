// Package odoo — клиент внешнего учёта по XML-RPC (execute_kw).
package odoo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
)

type Client struct {
	url      string
	database string
	username string
	password string

	commonURL string
	objectURL string
	transport http.RoundTripper

	mu  sync.Mutex
	uid int64
}

func NewClient(url, db, username, password string, timeout time.Duration) *Client {
	url = strings.TrimRight(url, "/")
	return &Client{
		url:       url,
		database:  db,
		username:  username,
		password:  password,
		commonURL: url + "/xmlrpc/2/common",
		objectURL: url + "/xmlrpc/2/object",
		transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
			TLSHandshakeTimeout:   timeout,
		},
	}
}

// Authenticate получает uid; повторные вызовы берут закэшированный
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	client, err := xmlrpc.NewClient(c.commonURL, c.transport)
	if err != nil {
		return 0, fmt.Errorf("xmlrpc client: %w", err)
	}
	defer client.Close()

	var uid any
	args := []any{c.database, c.username, c.password, map[string]any{}}
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authenticate: %w", err)
	}
	// при неверном пароле Odoo отвечает false, а не ошибкой
	id, ok := toInt(uid)
	if !ok || id == 0 {
		return 0, fmt.Errorf("authenticate: отказ для %s", c.username)
	}
	c.uid = id
	return id, nil
}

// execute вызов метода модели; kw может быть nil
func (c *Client) execute(ctx context.Context, model, method string, args []any, kw map[string]any, out any) error {
	uid, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := xmlrpc.NewClient(c.objectURL, c.transport)
	if err != nil {
		return fmt.Errorf("xmlrpc client: %w", err)
	}
	defer client.Close()

	params := []any{c.database, uid, c.password, model, method, args}
	if kw != nil {
		params = append(params, kw)
	}
	if err := client.Call("execute_kw", params, out); err != nil {
		return fmt.Errorf("%s.%s: %w", model, method, err)
	}
	return nil
}

func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, order string, limit int) ([]map[string]any, error) {
	kw := map[string]any{"fields": fields}
	if order != "" {
		kw["order"] = order
	}
	if limit > 0 {
		kw["limit"] = limit
	}
	var raw []any
	if err := c.execute(ctx, model, "search_read", []any{domain}, kw, &raw); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, model string, domain []any, limit int) ([]int64, error) {
	kw := map[string]any{}
	if limit > 0 {
		kw["limit"] = limit
	}
	var raw []any
	if err := c.execute(ctx, model, "search", []any{domain}, kw, &raw); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		if id, ok := toInt(v); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) SearchCount(ctx context.Context, model string, domain []any) (int64, error) {
	var raw any
	if err := c.execute(ctx, model, "search_count", []any{domain}, nil, &raw); err != nil {
		return 0, err
	}
	n, _ := toInt(raw)
	return n, nil
}

func (c *Client) FieldsGet(ctx context.Context, model string) (map[string]any, error) {
	var raw map[string]any
	err := c.execute(ctx, model, "fields_get", []any{}, map[string]any{
		"attributes": []string{"type", "relation"},
	}, &raw)
	return raw, err
}

func (c *Client) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	var raw any
	if err := c.execute(ctx, model, "create", []any{values}, nil, &raw); err != nil {
		return 0, err
	}
	id, ok := toInt(raw)
	if !ok {
		return 0, fmt.Errorf("%s.create: неожиданный ответ %v", model, raw)
	}
	return id, nil
}

func (c *Client) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	var ok bool
	if err := c.execute(ctx, model, "write", []any{ids, values}, nil, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s.write вернул false", model)
	}
	return nil
}
