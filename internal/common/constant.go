// Package common contains shared constants and sentinel errors used across
// workoutlog components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Top-level partitions of the hierarchical data store.
const (
	// UsersRoot holds one approval record per subject: {email, aprovado}.
	UsersRoot = "usuarios"
	// RecordsRoot holds one workout record collection per subject.
	RecordsRoot = "treinos"
)

// ApprovalField is the key of the approval flag inside a user record.
const ApprovalField = "aprovado"

// UserPath returns the data store path of subjectID's approval record.
func UserPath(subjectID string) string {
	return UsersRoot + "/" + subjectID
}

// RecordsPath returns the data store path of subjectID's workout records.
func RecordsPath(subjectID string) string {
	return RecordsRoot + "/" + subjectID
}
