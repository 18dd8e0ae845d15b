/*
meter.go - Meter and calibration registry, reading recorder

PURPOSE:
  Meters and their time-bounded calibration certificates, plus the
  recording of instrument readings against submission instances.

EXPIRY POLICY:
  Calibration expiry is evaluated against current time at record time and
  again at submit time; the two may disagree and that is accepted. With
  the block-expired-calibration policy off, an expired calibration
  produces a soft warning alongside the persisted reading; with it on,
  the recording is rejected and nothing is persisted.

SEE ALSO:
  - finalize.go: Recomputes calibration warnings at submit time
*/
package forms

import (
	"context"
	"fmt"
)

// CreateMeter registers a meter for an organization.
func (e *Engine) CreateMeter(ctx context.Context, in MeterInput) (Meter, error) {
	m := Meter{
		ID:           MeterID(newID()),
		Organization: in.Organization,
		Name:         in.Name,
		SerialNumber: in.SerialNumber,
		Model:        in.Model,
	}
	if err := e.store.InsertMeter(ctx, m); err != nil {
		return Meter{}, err
	}
	return m, nil
}

// AddCalibration attaches a calibration certificate to a meter. Fails
// with ErrMeterNotFound if the meter does not exist.
func (e *Engine) AddCalibration(ctx context.Context, meterID MeterID, in CalibrationInput) (Calibration, error) {
	var c Calibration
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetMeter(ctx, meterID); err != nil {
			return err
		}
		c = Calibration{
			ID:             CalibrationID(newID()),
			MeterID:        meterID,
			CalibratedAt:   in.CalibratedAt,
			ExpiresAt:      in.ExpiresAt,
			CertificateURL: in.CertificateURL,
		}
		return s.InsertCalibration(ctx, c)
	})
	if err != nil {
		return Calibration{}, err
	}
	return c, nil
}

// ListActiveMeters returns the organization's meters, each paired with
// its most recently calibrated certificate that has not yet expired, or
// nil if every certificate has lapsed.
func (e *Engine) ListActiveMeters(ctx context.Context, organization string) ([]MeterWithCalibration, error) {
	meters, err := e.store.ListMeters(ctx, organization)
	if err != nil {
		return nil, err
	}

	at := now()
	out := make([]MeterWithCalibration, 0, len(meters))
	for _, m := range meters {
		cals, err := e.store.ListCalibrations(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		var active *Calibration
		for i := range cals {
			c := cals[i]
			if c.ExpiredAt(at) {
				continue
			}
			if active == nil || c.CalibratedAt.After(active.CalibratedAt) {
				active = &c
			}
		}
		out = append(out, MeterWithCalibration{Meter: m, ActiveCalibration: active})
	}
	return out, nil
}

// RecordReading persists an instrument reading against an instance.
// The returned warnings list is non-empty exactly when the calibration
// has expired; with the block-expired-calibration policy on, an expired
// calibration rejects the recording instead and nothing is persisted.
func (e *Engine) RecordReading(ctx context.Context, instanceID InstanceID, in ReadingInput, userID string) (Reading, []string, error) {
	var (
		reading  Reading
		warnings []string
	)
	err := e.store.WithTx(ctx, func(s Store) error {
		inst, err := s.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		if _, err := s.GetSubmission(ctx, inst.SubmissionID); err != nil {
			return err
		}

		meter, err := s.GetMeter(ctx, in.MeterID)
		if err != nil {
			return err
		}
		cal, err := s.GetCalibration(ctx, in.CalibrationID)
		if err != nil {
			return err
		}
		if cal.MeterID != meter.ID {
			return ErrCalibrationMismatch
		}

		expired := cal.ExpiredAt(now())
		if expired && e.policy.BlockExpiredCalibration {
			return &PolicyBlockError{
				Policy:   "block_expired_calibration",
				Warnings: []string{expiredCalibrationWarning(meter)},
			}
		}

		reading = Reading{
			ID:            ReadingID(newID()),
			InstanceID:    instanceID,
			MeterID:       meter.ID,
			CalibrationID: cal.ID,
			Payload:       in.Reading,
			RecordedBy:    userID,
			CreatedAt:     now(),
		}
		if err := s.InsertReading(ctx, reading); err != nil {
			return err
		}
		if expired {
			warnings = append(warnings, expiredCalibrationWarning(meter))
		}
		return nil
	})
	if err != nil {
		return Reading{}, nil, err
	}
	return reading, warnings, nil
}

func expiredCalibrationWarning(m Meter) string {
	return fmt.Sprintf("Calibration expired for meter %s", m.Name)
}
