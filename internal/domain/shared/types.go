package shared

import (
	"errors"
	"strings"
)

var ErrMissingActor = errors.New("actor employee id and name are required")

// Actor identifies the employee who recorded a money movement
type Actor struct {
	EmployeeID   string `json:"employee_id" bson:"employee_id"`
	EmployeeName string `json:"employee_name" bson:"employee_name"`
}

// Validate ensures both attribution fields are present
func (a Actor) Validate() error {
	if strings.TrimSpace(a.EmployeeID) == "" || strings.TrimSpace(a.EmployeeName) == "" {
		return ErrMissingActor
	}
	return nil
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
