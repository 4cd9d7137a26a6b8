package signal

import (
	"net/http"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
)

// userFromRequest reads the optional handshake user id. Absent is fine;
// present but invalid is rejected before the upgrade.
func userFromRequest(r *http.Request) (domain.UserID, error) {
	raw := r.URL.Query().Get(protocol.UserIDParam)
	if raw == "" {
		return "", nil
	}
	if err := domain.ValidateID(raw); err != nil {
		return "", err
	}
	return domain.UserID(raw), nil
}
