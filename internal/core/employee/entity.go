package employee

// Employee は社員エンティティです。
// ID はゲートウェイが採番し、0 は未採番を表します。
type Employee struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Age       int
}
