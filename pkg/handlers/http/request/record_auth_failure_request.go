package request

import (
	"fmt"
	"net"
	"strings"
)

type RecordAuthFailureRequest struct {
	IP     string `json:"ip"`
	UserID string `json:"user_id,omitempty"`
}

func (r *RecordAuthFailureRequest) Validate() error {
	r.IP = strings.TrimSpace(r.IP)
	r.UserID = strings.TrimSpace(r.UserID)

	if r.IP == "" && r.UserID == "" {
		return fmt.Errorf("ip or user_id is required")
	}
	if r.IP != "" && net.ParseIP(r.IP) == nil {
		return fmt.Errorf("ip %q is not a valid address", r.IP)
	}
	return nil
}
