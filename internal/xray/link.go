package xray

import (
	"fmt"
	"net/url"
	"strings"
)

// LinkParams — параметры подключения, одинаковые для всех клиентов инстанса.
type LinkParams struct {
	Host     string
	Port     int
	Path     string
	Security string // none | tls | reality
}

// BuildVlessWSLink строит ссылку вида
// vless://<uuid>@host:port?type=ws&path=/ws8081&encryption=none&security=none#tag
// Фрагмент экранируется, чтобы произвольный tag (email, username) не ломал ссылку.
func BuildVlessWSLink(secret string, p LinkParams, tag string) string {
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	safeTag := strings.ReplaceAll(url.QueryEscape(tag), "+", "%20")
	return fmt.Sprintf(
		"vless://%s@%s:%d?type=ws&path=%s&encryption=none&security=%s#%s",
		secret, p.Host, p.Port, path, p.Security, safeTag,
	)
}
