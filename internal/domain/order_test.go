package domain

import "testing"

func TestOrderNotional(t *testing.T) {
	o := Order{Price: 150.5, Quantity: 10}
	if got := o.Notional(); got != 1505 {
		t.Errorf("Notional() = %v, want 1505", got)
	}

	market := Order{Price: 0, Quantity: 100}
	if got := market.Notional(); got != 0 {
		t.Errorf("market order Notional() = %v, want 0", got)
	}
	if !market.IsMarket() {
		t.Error("order with no price should be a market order")
	}
}

func TestOrderRecordCancelable(t *testing.T) {
	cancelable := []OrderStatus{OrderStatusPending, OrderStatusOpen, OrderStatusTransit}
	for _, status := range cancelable {
		rec := OrderRecord{Status: status}
		if !rec.Cancelable() {
			t.Errorf("status %q should be cancelable", status)
		}
	}

	terminal := []OrderStatus{OrderStatusCompleted, OrderStatusCancelled, OrderStatusRejected}
	for _, status := range terminal {
		rec := OrderRecord{Status: status}
		if rec.Cancelable() {
			t.Errorf("status %q should not be cancelable", status)
		}
	}
}

func TestKnownBroker(t *testing.T) {
	if !KnownBroker(BrokerDhan) || !KnownBroker(BrokerCoinSwitch) {
		t.Error("dhan and coinswitch should be known brokers")
	}
	if KnownBroker("zerodha") {
		t.Error("zerodha should not be a known broker")
	}
}
