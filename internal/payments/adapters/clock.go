package adapters

import "time"

type SystemDateTimeProvider struct {
	Location *time.Location
}

func (p SystemDateTimeProvider) Now() time.Time {
	if p.Location != nil {
		return time.Now().In(p.Location)
	}
	return time.Now()
}
