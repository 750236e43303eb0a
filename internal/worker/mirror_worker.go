package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"debtbook/internal/amqp"
	"debtbook/internal/core"
	applog "debtbook/internal/log"
	"debtbook/internal/obs"
	"debtbook/internal/sheets"
)

// EntryLoader reads single records back from storage.
type EntryLoader interface {
	GetCustomer(ctx context.Context, id int64) (core.Customer, error)
	GetPayment(ctx context.Context, id int64) (core.Payment, error)
	GetCashSale(ctx context.Context, id int64) (core.CashSale, error)
}

// MirrorWorker copies recorded ledger entries to the spreadsheet mirror.
type MirrorWorker struct {
	store  EntryLoader
	mirror sheets.LedgerMirror
}

func NewMirrorWorker(store EntryLoader, mirror sheets.LedgerMirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleEntryMessage loads the announced entry and appends it to the mirror.
// Entries that no longer exist are dropped; any other failure is returned so
// the message is requeued.
func (w *MirrorWorker) HandleEntryMessage(ctx context.Context, msg *amqp.EntryRecordedMessage) error {
	logger := slog.Default().With(
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpMirror,
		applog.FieldEntryKind, msg.Kind,
		applog.FieldEntryID, msg.ID)
	logger.InfoContext(ctx, "Processing entry message")

	ref, err := w.mirrorEntry(ctx, msg)
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrCustomerNotFound) {
		logger.WarnContext(ctx, "Entry not found, dropping message", applog.FieldError, err)
		return nil
	}
	obs.MirrorAppend(string(msg.Kind), err)
	if err != nil {
		return fmt.Errorf("mirror %s %d: %w", msg.Kind, msg.ID, err)
	}

	logger.InfoContext(ctx, "Entry mirrored", applog.FieldSheetsRef, ref)
	return nil
}

func (w *MirrorWorker) mirrorEntry(ctx context.Context, msg *amqp.EntryRecordedMessage) (string, error) {
	switch msg.Kind {
	case amqp.KindCustomer:
		c, err := w.store.GetCustomer(ctx, msg.ID)
		if err != nil {
			return "", err
		}
		return w.mirror.AppendCustomer(ctx, c)
	case amqp.KindPayment:
		p, err := w.store.GetPayment(ctx, msg.ID)
		if err != nil {
			return "", err
		}
		c, err := w.store.GetCustomer(ctx, p.CustomerID)
		if err != nil {
			return "", fmt.Errorf("customer %d of payment %d: %w", p.CustomerID, p.ID, err)
		}
		return w.mirror.AppendPayment(ctx, p, c)
	case amqp.KindCashSale:
		s, err := w.store.GetCashSale(ctx, msg.ID)
		if err != nil {
			return "", err
		}
		return w.mirror.AppendCashSale(ctx, s)
	default:
		return "", fmt.Errorf("unknown entry kind %q", msg.Kind)
	}
}
