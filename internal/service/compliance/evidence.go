package compliance

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"golang.org/x/crypto/blake2b"
)

// EvidenceHash считает BLAKE2b-256 от полей подписи.
// Позволяет обнаружить ручную правку строки журнала.
func EvidenceHash(sig *entity.MandatoryContentSignature) string {
	parts := []string{
		sig.ContentID.String(),
		sig.UserID.String(),
		strconv.Itoa(sig.Score),
		sig.ConfirmationText,
		sig.IPAddress,
		sig.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// VerifyEvidence сверяет сохранённый хеш с пересчитанным
func VerifyEvidence(sig *entity.MandatoryContentSignature) bool {
	return sig.EvidenceHash != "" && sig.EvidenceHash == EvidenceHash(sig)
}

// ContentFingerprint считает BLAKE2b-256 от того, что пользователь проходит:
// тип, материал и вопросы квиза. Правка контента админом меняет отпечаток.
func ContentFingerprint(content *entity.MandatoryContent) string {
	var b strings.Builder
	b.WriteString(content.Type)
	b.WriteString("|" + content.ContentURL)
	b.WriteString("|" + content.ContentText)
	for _, q := range content.Questions() {
		b.WriteString("|q:" + q.Question)
		b.WriteString("|o:" + strings.Join(q.Options, "\x1f"))
		b.WriteString("|a:" + q.CorrectAnswer)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
