package collection

import (
	"context"
	"fmt"
)

// UpdateDetail applies a patch to one detail line and settles its final tax. Changing the estimate re-runs
// reconciliation for the whole period.
func (service *Service) UpdateDetail(ctx context.Context, detailID uint, patch DetailPatch) (DetailLine, error) {
	if patch.EstimatedTax != nil && patch.EstimatedTax.IsNegative() {
		return DetailLine{}, fmt.Errorf("%w: estimated tax must not be negative", ErrValidation)
	}
	var (
		updated DetailLine
		period  Period
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		line, err := transactionStore.GetDetail(ctx, detailID)
		if err != nil {
			return err
		}
		period, err = transactionStore.GetPeriod(ctx, line.PeriodID)
		if err != nil {
			return err
		}
		if period.Locked {
			return lockedError(period.ID)
		}
		patch.apply(&line)
		line.settleFinalTax()
		if err := transactionStore.SaveDetails(ctx, []DetailLine{line}); err != nil {
			return err
		}
		if patch.EstimatedTax != nil {
			if err := service.reconcilePeriod(ctx, transactionStore, period); err != nil {
				return err
			}
		}
		updated, err = transactionStore.GetDetail(ctx, detailID)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateDetail,
		VenueID:   period.VenueID,
		PeriodID:  period.ID,
		LineCount: 1,
		Error:     operationError,
	})
	if operationError != nil {
		return DetailLine{}, operationError
	}
	return updated, nil
}

// DeleteDetail removes one detail line and reconciles the remaining lines.
func (service *Service) DeleteDetail(ctx context.Context, detailID uint) error {
	var period Period
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		line, err := transactionStore.GetDetail(ctx, detailID)
		if err != nil {
			return err
		}
		period, err = transactionStore.GetPeriod(ctx, line.PeriodID)
		if err != nil {
			return err
		}
		if period.Locked {
			return lockedError(period.ID)
		}
		if err := transactionStore.DeleteDetail(ctx, detailID); err != nil {
			return err
		}
		return service.reconcilePeriod(ctx, transactionStore, period)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteDetail,
		VenueID:   period.VenueID,
		PeriodID:  period.ID,
		LineCount: 1,
		Error:     operationError,
	})
	return operationError
}
