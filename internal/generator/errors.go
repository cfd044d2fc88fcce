package generator

import "fmt"

type errCount struct {
	got, want int
}

func (e errCount) Error() string {
	return fmt.Sprintf("expected %d questions, got %d", e.want, e.got)
}

type errMalformed struct {
	index  int
	reason string
}

func (e errMalformed) Error() string {
	return fmt.Sprintf("question %d malformed: %s", e.index, e.reason)
}
