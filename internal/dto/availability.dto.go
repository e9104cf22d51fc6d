package dto

type AvailabilityQuery struct {
	Date      string `form:"date" binding:"required,isodate"`
	StartTime string `form:"start" binding:"required,hhmm"`
	EndTime   string `form:"end" binding:"required,hhmm"`
}

type SlotsQuery struct {
	Date string `form:"date" binding:"required,isodate"`
	From string `form:"from" binding:"omitempty,hhmm"`
	To   string `form:"to" binding:"omitempty,hhmm"`
}
