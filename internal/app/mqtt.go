// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// publisher is the part of mqtt.Client the services publish through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

const (
	publishTimeout    = 2 * time.Second
	disconnectQuiesce = 250 // ms
)

// connectMQTT connects to broker with clientID plus a short random suffix,
// so two copies of the same process do not kick each other off the broker.
func connectMQTT(broker, clientID string, log logrus.FieldLogger) (mqtt.Client, error) {
	id := fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	log.WithFields(logrus.Fields{"broker": broker, "client_id": id}).Info("connected to MQTT broker")
	return client, nil
}

// subscribe blocks until the broker acknowledges the subscription.
func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler, log logrus.FieldLogger) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}
	log.WithField("topic", topic).Info("subscribed to MQTT topic")
	return nil
}

// publishJSON marshals v and publishes it, waiting at most publishTimeout
// for the broker.
func publishJSON(pub publisher, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	token := pub.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
