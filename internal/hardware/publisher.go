package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

// IoTDataPublisher delivers facility commands over MQTT via the AWS IoT
// Data Plane. Topic layout: {prefix}/command/{facility_id}.
type IoTDataPublisher struct {
	client      *iotdataplane.Client
	topicPrefix string
}

func NewIoTDataPublisher(client *iotdataplane.Client, topicPrefix string) *IoTDataPublisher {
	return &IoTDataPublisher{client: client, topicPrefix: topicPrefix}
}

func (p *IoTDataPublisher) PublishCommand(ctx context.Context, cmd domain.DeviceCommandPayload) error {
	topic := fmt.Sprintf("%s/command/%s", p.topicPrefix, cmd.FacilityID)

	payloadBytes, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshaling command payload: %w", err)
	}

	log.Printf("IoTDataPublisher: publishing '%s' (ReqID: %s, Seq: %d) to topic %s", cmd.Action, cmd.RequestID, cmd.Seq, topic)
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("publishing MQTT command: %w", err)
	}
	return nil
}
