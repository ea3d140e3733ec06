package main

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestWorkerConcurrency(t *testing.T) {
	cases := []struct {
		env  string
		want int
	}{
		{"", 2},
		{"8", 8},
		{"0", 2},
		{"-3", 2},
		{"9000", 50},
		{"not-a-number", 2},
	}
	for _, tc := range cases {
		t.Setenv("WORKER_CONCURRENCY", tc.env)
		if got := workerConcurrency(); got != tc.want {
			t.Fatalf("WORKER_CONCURRENCY=%q: got %d, want %d", tc.env, got, tc.want)
		}
	}
}

func TestRetryCount(t *testing.T) {
	cases := []struct {
		name string
		d    amqp.Delivery
		want int
	}{
		{"no headers", amqp.Delivery{}, 0},
		{"missing key", amqp.Delivery{Headers: amqp.Table{}}, 0},
		{"int32", amqp.Delivery{Headers: amqp.Table{"x-retry-count": int32(2)}}, 2},
		{"int64", amqp.Delivery{Headers: amqp.Table{"x-retry-count": int64(1)}}, 1},
		{"int", amqp.Delivery{Headers: amqp.Table{"x-retry-count": 3}}, 3},
		{"wrong type", amqp.Delivery{Headers: amqp.Table{"x-retry-count": "2"}}, 0},
	}
	for _, tc := range cases {
		if got := retryCount(tc.d); got != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}
