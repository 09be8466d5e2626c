package models

import "time"

// Inference decisions offered after an upload is displayed.
const (
	DecisionPending = "Selecione"
	DecisionYes     = "Sim"
	DecisionNo      = "Não"
)

// Upload records that a file was received. The file contents are never persisted.
type Upload struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"-"`
	Username    string    `db:"username" json:"username"`
	Filename    string    `db:"filename" json:"filename"`
	Format      string    `db:"format" json:"format"`
	RowCount    int       `db:"row_count" json:"row_count"`
	ColumnCount int       `db:"column_count" json:"column_count"`
	Decision    string    `db:"decision" json:"decision"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// InferenceRequest carries the operator's answer to "Deseja fazer a inferência com estes dados?".
type InferenceRequest struct {
	Confirm string `json:"confirm" form:"confirm" binding:"required,oneof=Selecione Sim Não"`
}
