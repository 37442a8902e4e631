package lifecycle

import "github.com/kittynode/kittynode/internal/model"

// steps records the side effects of an install or delete as they are
// applied, so a failure part-way can report what was left behind.
type steps struct {
	op   string
	pkg  string
	done []string
}

func (s *steps) add(step string) {
	s.done = append(s.done, step)
}

// fail returns err unchanged when nothing was applied yet, otherwise wraps
// it in a PartialStateError.
func (s *steps) fail(err error) error {
	if len(s.done) == 0 {
		return err
	}
	return &model.PartialStateError{
		Op:        s.op,
		Package:   s.pkg,
		Completed: append([]string(nil), s.done...),
		Err:       err,
	}
}
