package common

type Module string

const (
	ModuleDoginals Module = "doginals"
)

func (m Module) String() string {
	return string(m)
}
