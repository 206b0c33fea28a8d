package contracts

// Topics maps message types onto the three broker topics.
type Topics struct {
	Events            string `yaml:"events" env:"TOPIC_EVENTS" env-default:"booking.events"`
	InventoryCommands string `yaml:"inventory_commands" env:"TOPIC_INVENTORY_COMMANDS" env-default:"inventory.commands"`
	PaymentCommands   string `yaml:"payment_commands" env:"TOPIC_PAYMENT_COMMANDS" env-default:"payment.commands"`
}

func (t Topics) For(msgType string) string {
	switch msgType {
	case TypeHoldRoom, TypeReleaseRoom, TypeConfirmRoom:
		return t.InventoryCommands
	case TypeProcessPayment:
		return t.PaymentCommands
	default:
		return t.Events
	}
}

// DeadLetter is the topic a consumer parks messages on after retries run out.
func DeadLetter(topic string) string {
	return topic + ".dlq"
}
