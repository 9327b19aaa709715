// Package rules decides which data-store paths a subject may touch.
//
// A subject owns two partitions: usuarios/{subject} and treinos/{subject}.
// It may read, subscribe and write inside them and append only inside its
// treinos partition. Approval is granted by an administrator, so a subject
// may never set its own aprovado flag to true.
package rules

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workoutlog/internal/common"
)

func owns(subjectID, root, path string) bool {
	if subjectID == "" {
		return false
	}
	own := root + "/" + subjectID
	return path == own || strings.HasPrefix(path, own+"/")
}

func denied(op, path string) error {
	return fmt.Errorf("%w: %s %s", common.ErrPermissionDenied, op, path)
}

// CanRead also covers subscriptions.
func CanRead(subjectID, path string) error {
	if owns(subjectID, common.UsersRoot, path) || owns(subjectID, common.RecordsRoot, path) {
		return nil
	}
	return denied("read", path)
}

// CanWrite checks a write of value (as decoded from JSON) at path.
func CanWrite(subjectID, path string, value any) error {
	if owns(subjectID, common.RecordsRoot, path) {
		return nil
	}
	if !owns(subjectID, common.UsersRoot, path) {
		return denied("write", path)
	}

	own := common.UserPath(subjectID)
	switch path {
	case own:
		if m, ok := value.(map[string]any); ok && m[common.ApprovalField] == true {
			return denied("approve", path)
		}
	case own + "/" + common.ApprovalField:
		if value == true {
			return denied("approve", path)
		}
	}
	return nil
}

func CanAppend(subjectID, path string) error {
	if owns(subjectID, common.RecordsRoot, path) {
		return nil
	}
	return denied("append", path)
}
