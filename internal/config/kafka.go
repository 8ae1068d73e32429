package config

import "errors"

type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES,required" envSeparator:","`
	// Group is only used by processes that consume domain events.
	Group    string `env:"KAFKA_GROUP" envDefault:"stock-cart-events"`
	ClientID string `env:"KAFKA_CLIENT_ID" envDefault:"stock-cart"`
}

func (k *Kafka) Validate() error {
	for _, addr := range k.Addresses {
		if addr == "" {
			return errors.New("empty broker address")
		}
	}
	return nil
}
