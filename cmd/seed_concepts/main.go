// seed_concepts genera el script SQL que puebla el catálogo de conceptos de
// movimiento con códigos estables. Los conceptos se resuelven siempre por id
// o código exacto, nunca por substring del nombre.
//
// Uso: go run ./cmd/seed_concepts
// Escribe: internal/infrastructure/postgres/migrations/002_seed_concepts.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type concept struct {
	id          string
	code        string
	direction   string
	affectsCost bool
}

// IDs fijos: los workflows externos y la configuración del coordinador de
// traslados referencian estos identificadores, no los códigos.
var concepts = []concept{
	{"11111111-0000-0000-0000-000000000001", "compra", "INBOUND", true},
	{"11111111-0000-0000-0000-000000000002", "venta", "OUTBOUND", false},
	{"11111111-0000-0000-0000-000000000003", "ajuste-entrada", "INBOUND", true},
	{"11111111-0000-0000-0000-000000000004", "ajuste-salida", "OUTBOUND", false},
	{"11111111-0000-0000-0000-000000000005", "traspaso-salida", "OUTBOUND", false},
	{"11111111-0000-0000-0000-000000000006", "traspaso-entrada", "INBOUND", true},
}

func main() {
	var b strings.Builder
	b.WriteString("-- Generado por cmd/seed_concepts. No editar a mano.\n")
	b.WriteString("-- Catálogo base de conceptos de movimiento.\n\n")
	for _, c := range concepts {
		fmt.Fprintf(&b,
			"INSERT INTO concepts (id, code, direction, affects_cost)\nVALUES ('%s', '%s', '%s', %t)\nON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, direction = EXCLUDED.direction, affects_cost = EXCLUDED.affects_cost;\n\n",
			c.id, c.code, c.direction, c.affectsCost,
		)
	}

	out := filepath.Join("internal", "infrastructure", "postgres", "migrations", "002_seed_concepts.sql")
	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "escribir %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("escrito %s (%d conceptos)\n", out, len(concepts))
}
