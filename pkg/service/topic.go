package service

import (
	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/transport"
)

// topicFor returns a reference to topic name, creating it when this
// participant does not know it yet. The reference must be released with
// DeleteTopic.
func (c *Context) topicFor(name, typeName string) (transport.Topic, error) {
	p := c.config.Participant
	if p.LookupTopicDescription(name) {
		t, err := p.FindTopic(name, c.config.TopicWait)
		if err != nil {
			return nil, errs.Wrap(errs.TopicUnavailable, err, "failed to find topic "+name)
		}
		return t, nil
	}
	tq, err := p.DefaultTopicQoS()
	if err != nil {
		return nil, errs.Wrap(errs.TopicUnavailable, err, "failed to get default topic qos")
	}
	t, err := p.CreateTopic(name, typeName, tq)
	if err != nil {
		return nil, errs.Wrap(errs.TopicUnavailable, err, "failed to create topic "+name)
	}
	return t, nil
}
