package enums

// Hall is a residential hall the kitchen delivers to.
type Hall string

const (
	HallShahidullah   Hall = "Shahidullah Hall"
	HallSalimullah    Hall = "Salimullah Muslim Hall"
	HallJagannath     Hall = "Jagannath Hall"
	HallFazlulHuq     Hall = "Fazlul Huq Muslim Hall"
	HallSurjaSen      Hall = "Surja Sen Hall"
	HallJasimUddin    Hall = "Jasim Uddin Hall"
	HallZiaur         Hall = "Ziaur Rahman Hall"
	HallRokeya        Hall = "Rokeya Hall"
	HallShamsunNahar  Hall = "Shamsun Nahar Hall"
	HallKuwaitMaitree Hall = "Kuwait Maitree Hall"
)

var halls = set[Hall]{
	HallShahidullah,
	HallSalimullah,
	HallJagannath,
	HallFazlulHuq,
	HallSurjaSen,
	HallJasimUddin,
	HallZiaur,
	HallRokeya,
	HallShamsunNahar,
	HallKuwaitMaitree,
}

// Halls returns the delivery halls in display order.
func Halls() []Hall { return halls.values() }

func (h Hall) String() string { return string(h) }

func (h Hall) IsValid() bool { return halls.contains(h) }

// ParseHall requires the exact display name.
func ParseHall(value string) (Hall, error) {
	return halls.parse("hall", value)
}
