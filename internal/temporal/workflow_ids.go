package temporal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

func TicketScanWorkflowID(prefix, draftID, objectKey string) string {
	sum := sha256.Sum256([]byte(objectKey))
	return fmt.Sprintf("%s-scan-%s-%s", normalizedPrefix(prefix), draftID, hex.EncodeToString(sum[:])[:12])
}

func ClaimTrackingWorkflowID(prefix, reference string) string {
	return fmt.Sprintf("%s-track-%s", normalizedPrefix(prefix), reference)
}

func normalizedPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "flyclaim"
	}
	return prefix
}
