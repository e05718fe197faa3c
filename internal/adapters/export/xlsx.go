// Package export genera planillas para la administración de overrides.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/vitrina/internal/usecase"
)

const sheet = "Overrides"

// WriteOverrides escribe una fila por producto con disponibilidad de
// catálogo, override y disponibilidad efectiva.
func WriteOverrides(w io.Writer, items []usecase.CatalogItem) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := []any{"ID", "Título", "Categoría", "Precio", "Catálogo", "Override", "Disponible"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, it := range items {
		ov := ""
		if it.Override != nil {
			ov = yesNo(*it.Override)
		}
		row := []any{it.ID, it.Title, it.Category, it.Price, yesNo(it.Available), ov, yesNo(it.Purchasable)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("fila %d: %w", i+2, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
