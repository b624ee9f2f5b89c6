package formance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time check: *Journal must satisfy events.Sink.
var _ events.Sink = (*Journal)(nil)

const (
	defaultLedgerName = "tapx-earn"
	defaultAsset      = "COIN/3"
)

// Journal mirrors every non-tap balance movement into a Formance ledger as
// double-entry postings. The local database stays authoritative; a failed
// post is logged and can be replayed from ledger_entries.
type Journal struct {
	client    *v3.Formance
	ledger    string
	asset     string
	precision int32
}

// NewJournal connects to the stack, creates the ledger if it doesn't already
// exist, and returns ready to use.
func NewJournal(ctx context.Context, cfg models.FormanceConfig) (*Journal, error) {
	if cfg.ServerURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires ServerURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}
	if cfg.Asset == "" {
		cfg.Asset = defaultAsset
	}
	precision, err := assetPrecision(cfg.Asset)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("server_url", cfg.ServerURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.ServerURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	j := &Journal{client: client, ledger: cfg.LedgerName, asset: cfg.Asset, precision: precision}
	if err := j.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance journal initialized", zap.String("ledger", cfg.LedgerName), zap.String("asset", cfg.Asset))
	return j, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (j *Journal) ensureLedger(ctx context.Context) error {
	_, err := j.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: j.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "tapx-earn",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", j.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", j.ledger))
	return nil
}

// assetPrecision reads the precision from UMN notation, e.g. "COIN/3" -> 3.
func assetPrecision(asset string) (int32, error) {
	i := strings.LastIndex(asset, "/")
	if i <= 0 || i == len(asset)-1 {
		return 0, fmt.Errorf("asset %q must use UMN notation like COIN/3", asset)
	}
	p, err := strconv.Atoi(asset[i+1:])
	if err != nil || p < 0 || p > 18 {
		return 0, fmt.Errorf("asset %q has invalid precision", asset)
	}
	return int32(p), nil
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

// isNotFoundError checks whether a Formance SDK error is NOT_FOUND.
func isNotFoundError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumNotFound
}
