// replay verifica (y opcionalmente reconstruye) la proyección de stock de una
// bodega contra el ledger, que es la fuente de verdad.
//
// Uso: go run ./cmd/replay -warehouse <id> [-rebuild]
// Con -rebuild reescribe cada StockRecord inconsistente por replay del ledger.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/tu-usuario/kardex-engine/internal/application/inventory"
	"github.com/tu-usuario/kardex-engine/internal/infrastructure/postgres"
	"github.com/tu-usuario/kardex-engine/pkg/config"
	"github.com/tu-usuario/kardex-engine/pkg/keylock"
	"github.com/tu-usuario/kardex-engine/pkg/logger"
)

const pageSize = 200

func main() {
	warehouseID := flag.String("warehouse", "", "id de la bodega a verificar")
	rebuild := flag.Bool("rebuild", false, "reconstruir los registros inconsistentes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	if *warehouseID == "" {
		log.Fatal().Msg("falta -warehouse")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	stockRepo := postgres.NewStockRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	conceptRepo := postgres.NewConceptRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	engineCfg := inventory.Config{
		LockTimeout:  cfg.Engine.LockTimeout,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: cfg.Engine.RetryBackoff,
	}
	rebuildUC := inventory.NewRebuildUseCase(txRunner, stockRepo, ledgerRepo, conceptRepo, keylock.New(), engineCfg)

	checked, broken := 0, 0
	offset := 0
	for {
		records, err := stockRepo.ListByWarehouse(*warehouseID, pageSize, offset)
		if err != nil {
			log.Fatal().Err(err).Msg("listar stock de la bodega")
		}
		for _, rec := range records {
			checked++
			report, err := rebuildUC.CheckConservation(rec.WarehouseID, rec.ProductID)
			if err != nil {
				log.Fatal().Err(err).Str("product_id", rec.ProductID).Msg("verificar conservación")
			}
			if err := rebuildUC.CheckChaining(rec.WarehouseID, rec.ProductID); err != nil {
				log.Error().Err(err).Str("product_id", rec.ProductID).Msg("encadenamiento roto")
				broken++
				continue
			}
			if report.Consistent {
				continue
			}
			broken++
			log.Error().
				Str("product_id", rec.ProductID).
				Str("ledger_quantity", report.LedgerQuantity.String()).
				Str("stored_quantity", report.StoredQuantity.String()).
				Msg("proyección inconsistente con el ledger")
			if *rebuild {
				rebuilt, err := rebuildUC.RebuildStock(ctx, rec.WarehouseID, rec.ProductID)
				if err != nil {
					log.Error().Err(err).Str("product_id", rec.ProductID).Msg("reconstrucción falló")
					continue
				}
				log.Info().
					Str("product_id", rec.ProductID).
					Str("quantity", rebuilt.Quantity.String()).
					Str("average_cost", rebuilt.AverageCost.String()).
					Msg("registro reconstruido desde el ledger")
			}
		}
		if len(records) < pageSize {
			break
		}
		offset += len(records)
	}

	log.Info().Int("checked", checked).Int("broken", broken).Msg("verificación terminada")
	if broken > 0 && !*rebuild {
		os.Exit(1)
	}
}
