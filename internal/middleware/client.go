package middleware

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
)

// ClientKey 尽量识别客户端：X-Forwarded-For 第一个地址，其次 X-Real-IP，
// 都没有时退化为 User-Agent + Accept 的哈希
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return "ip:" + first
		}
	}

	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
		return "ip:" + xrip
	}

	h := fnv.New64a()
	h.Write([]byte(r.Header.Get("User-Agent")))
	h.Write([]byte{0})
	h.Write([]byte(r.Header.Get("Accept")))
	return fmt.Sprintf("ua:%x", h.Sum64())
}
