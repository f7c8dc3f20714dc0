package httpx

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// genID returns a random id safe for file names.
func genID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return strings.ReplaceAll(u.String(), "-", "")
}
