package suggestions

import (
	"time"

	"github.com/google/uuid"
)

type idSource struct {
	now func() time.Time
}

func newIDSource() *idSource {
	return &idSource{now: time.Now}
}

// stamp assigns an id and creation time
func (s *idSource) stamp(sg Suggestion) Suggestion {
	sg.ID = uuid.New().String()
	sg.CreatedAt = s.now().UTC()
	return sg
}
