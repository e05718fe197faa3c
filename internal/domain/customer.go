package domain

import (
	"strings"
	"time"
)

// CustomerRecord son los datos de contacto guardados en el dispositivo para
// precargar el checkout. SavedAt está en milisegundos epoch.
type CustomerRecord struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Region  string `json:"region"`
	Address string `json:"address"`
	SavedAt int64  `json:"savedAt"`
}

func (c CustomerRecord) IsBlank() bool {
	return strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.Phone) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Address) == ""
}

// HasContact indica si hay al menos nombre o teléfono.
func (c CustomerRecord) HasContact() bool {
	return strings.TrimSpace(c.Name) != "" || strings.TrimSpace(c.Phone) != ""
}

// Stamp expone SavedAt para la resolución entre capas.
func (c CustomerRecord) Stamp() time.Time { return time.UnixMilli(c.SavedAt) }
