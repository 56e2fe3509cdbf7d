package tank

// BucketHook receives aggregation diagnostics. Implementations must be cheap;
// they run inline with aggregation.
type BucketHook interface {
	ObserveBucket(period Period, key BucketKey, count int)
	ObserveMalformed(err error)
}

type nopHook struct{}

func (nopHook) ObserveBucket(Period, BucketKey, int) {}
func (nopHook) ObserveMalformed(error)               {}
