package sheets

import (
	"strconv"

	"finbot/internal/core"
)

const dateLayout = "2006-01-02"

// TransactionHeader names the columns written by TransactionRow.
var TransactionHeader = []any{"Fecha", "Tipo", "Descripción", "Categoría", "Monto", "ID"}

// GoalHeader names the columns written by GoalRow.
var GoalHeader = []any{"Creada", "Meta", "Objetivo", "Ahorrado", "Progreso", "Completada", "ID"}

// TransactionRow renders a transaction as a spreadsheet row.
func TransactionRow(tx core.Transaction) []any {
	kind := "Gasto"
	if tx.Type == core.Income {
		kind = "Ingreso"
	}
	return []any{
		tx.Date.Format(dateLayout),
		kind,
		tx.Description,
		tx.Category.Info().Name,
		tx.Amount.StringFixed(2),
		tx.ID,
	}
}

// GoalRow renders a goal snapshot as a spreadsheet row.
func GoalRow(g core.Goal) []any {
	return []any{
		g.CreatedAt.Format(dateLayout),
		g.Title,
		g.TargetAmount.StringFixed(2),
		g.CurrentAmount.StringFixed(2),
		g.Progress().Round(0).String() + "%",
		strconv.FormatBool(g.IsCompleted()),
		g.ID,
	}
}
