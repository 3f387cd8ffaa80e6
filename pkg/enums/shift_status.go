package enums

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

func (s ShiftStatus) String() string {
	return string(s)
}

func (s ShiftStatus) IsValid() bool {
	return s == ShiftStatusOpen || s == ShiftStatusClosed
}
