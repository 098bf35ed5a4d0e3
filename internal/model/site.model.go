package model

// SiteInfo is the public contact information rendered on the contact page
// and in confirmation emails.
type SiteInfo struct {
	Name     string
	Address  string
	Phone    string
	Email    string
	Website  string
	Weekdays string
	Saturday string
	Sunday   string
}

type BusinessHours struct {
	Days  string
	Hours string
}

func (s SiteInfo) Hours() []BusinessHours {
	return []BusinessHours{
		{Days: "Monday - Friday", Hours: s.Weekdays},
		{Days: "Saturday", Hours: s.Saturday},
		{Days: "Sunday", Hours: s.Sunday},
	}
}
