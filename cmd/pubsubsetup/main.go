package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usage = "usage: pubsubsetup PROJECTID,TOPIC1:SUBSCRIPTION11:SUBSCRIPTION12,TOPIC2:SUBSCRIPTION21"

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

// topology maps every topic to the subscriptions attached to it.
type topology struct {
	projectID string
	topics    map[string][]string
	order     []string
}

// parseTopology parses PROJECTID,TOPIC:SUB:SUB,TOPIC:SUB. Blanks are ignored.
func parseTopology(topologyFlag string) (*topology, error) {
	items := strings.Split(strings.ReplaceAll(topologyFlag, " ", ""), ",")
	if items[0] == "" {
		return nil, fmt.Errorf("missing project id: %s", usage)
	}
	t := &topology{projectID: items[0], topics: make(map[string][]string)}
	for _, item := range items[1:] {
		parts := strings.Split(item, ":")
		topicID := parts[0]
		if topicID == "" {
			return nil, fmt.Errorf("empty topic in %q", item)
		}
		if _, seen := t.topics[topicID]; !seen {
			t.order = append(t.order, topicID)
		}
		for _, sub := range parts[1:] {
			if sub != "" {
				t.topics[topicID] = append(t.topics[topicID], sub)
			}
		}
		if _, ok := t.topics[topicID]; !ok {
			t.topics[topicID] = nil
		}
	}
	return t, nil
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println(usage)
		os.Exit(2)
	}
	topo, err := parseTopology(flag.Arg(0))
	if err != nil {
		log.WithError(err).Fatal("invalid topology")
	}

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, topo.projectID)
	if err != nil {
		log.WithError(err).WithField("project", topo.projectID).Fatal("unable to create pubsub client")
	}
	defer client.Close()

	for _, topicID := range topo.order {
		topic, err := client.CreateTopic(ctx, topicID)
		if status.Code(err) == codes.AlreadyExists {
			topic = client.Topic(topicID)
		} else if err != nil {
			log.WithError(err).WithField("topic", topicID).Fatal("unable to create topic")
		}

		for _, subscriptionID := range topo.topics[topicID] {
			_, err := client.CreateSubscription(ctx, subscriptionID, pubsub.SubscriptionConfig{Topic: topic})
			if err != nil && status.Code(err) != codes.AlreadyExists {
				log.WithError(err).
					WithField("topic", topicID).
					WithField("subscription", subscriptionID).
					Fatal("unable to create subscription")
			}
			log.WithFields(log.Fields{
				"project":      topo.projectID,
				"topic":        topicID,
				"subscription": subscriptionID,
			}).Info("subscription ready")
		}
	}
}
