package compliance

import (
	"log"
	"net"
	"strings"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
)

// IPResolver выбирает IP-адрес для подписи. Сервер сам адрес не запрашивает:
// его внешний IP не имеет отношения к пользователю.
// Ошибки не возвращаются, при неудаче адрес "unknown".
type IPResolver struct{}

func NewIPResolver() *IPResolver {
	return &IPResolver{}
}

// Resolve отдаёт приоритет адресу, который сообщил браузер, затем адресу запроса.
// Учитываются только публичные адреса.
func (r *IPResolver) Resolve(requestIP, reportedIP string) string {
	if ip, ok := publicIP(reportedIP); ok {
		return ip
	}
	if reportedIP != "" {
		log.Printf("[IPResolver] Адрес клиента %q отклонён: не публичный IP", reportedIP)
	}
	if ip, ok := publicIP(requestIP); ok {
		return ip
	}
	return entity.IPAddressUnknown
}

func publicIP(raw string) (string, bool) {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil || !isPublicIP(ip) {
		return "", false
	}
	return ip.String(), true
}

func isPublicIP(ip net.IP) bool {
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsMulticast()
}
