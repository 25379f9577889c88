package permission

import "context"

// Device reads and requests OS permissions. Request may show a blocking
// system dialog.
type Device interface {
	Status(ctx context.Context, k Kind) (Status, error)
	Request(ctx context.Context, k Kind) (Status, error)
}

// ReportedDevice answers with statuses a client reported. A server cannot
// raise OS prompts, so Request returns the reported status too.
type ReportedDevice map[Kind]Status

// ParseReported validates a client report keyed by kind name. Kinds the
// client left out are undetermined.
func ParseReported(raw map[string]string) (ReportedDevice, error) {
	d := make(ReportedDevice, len(Kinds))
	for name, status := range raw {
		k, s := Kind(name), Status(status)
		if !k.Valid() {
			return nil, &QueryFailedError{Kind: k, Err: ErrUnknownKind}
		}
		if !s.Valid() {
			return nil, &QueryFailedError{Kind: k, Err: ErrUnknownStatus}
		}
		d[k] = s
	}
	return d, nil
}

func (d ReportedDevice) Status(_ context.Context, k Kind) (Status, error) {
	if !k.Valid() {
		return StatusUndetermined, ErrUnknownKind
	}
	if s, ok := d[k]; ok {
		return s, nil
	}
	return StatusUndetermined, nil
}

func (d ReportedDevice) Request(ctx context.Context, k Kind) (Status, error) {
	return d.Status(ctx, k)
}
