// Package feed publishes fleet snapshots as a GTFS-realtime VehiclePositions
// feed so any GTFS-rt consumer can render the simulation.
package feed

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/cxd309/railsim/internal/train"
)

const gtfsRealtimeVersion = "2.0"

// EntityID returns the feed entity id used for a train.
func EntityID(id train.ID) string {
	return "train-" + strconv.Itoa(id)
}

// Build converts snapshots into a full-dataset FeedMessage. Trains without a
// usable position are still listed, without a Position.
func Build(snaps []train.Snapshot, now time.Time) *gtfs.FeedMessage {
	ts := uint64(now.Unix())
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(snaps)),
	}

	for _, s := range snaps {
		vp := &gtfs.VehiclePosition{
			Trip: &gtfs.TripDescriptor{
				RouteId: proto.String(s.Route),
			},
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(strconv.Itoa(s.ID)),
				Label: proto.String(fmt.Sprintf("%s #%d", s.Route, s.ID)),
			},
			Timestamp: proto.Uint64(ts),
		}
		if !s.Degenerate {
			vp.Position = &gtfs.Position{
				Latitude:  proto.Float32(float32(s.Point.Lat())),
				Longitude: proto.Float32(float32(s.Point.Lon())),
				Bearing:   proto.Float32(float32(s.Bearing)),
				Speed:     proto.Float32(float32(s.Velocity)),
				Odometer:  proto.Float64(s.RoutePosition),
			}
		}
		switch {
		case s.State == train.StateDwelling && s.LastStop != 0:
			vp.CurrentStatus = gtfs.VehiclePosition_STOPPED_AT.Enum()
			vp.StopId = proto.String(strconv.FormatInt(int64(s.LastStop), 10))
		case s.NextStop != 0:
			vp.CurrentStatus = gtfs.VehiclePosition_IN_TRANSIT_TO.Enum()
			vp.StopId = proto.String(strconv.FormatInt(int64(s.NextStop), 10))
		}
		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{
			Id:      proto.String(EntityID(s.ID)),
			Vehicle: vp,
		})
	}
	return msg
}

// Encode builds the feed and marshals it to protobuf wire format.
func Encode(snaps []train.Snapshot, now time.Time) ([]byte, error) {
	data, err := proto.Marshal(Build(snaps, now))
	if err != nil {
		return nil, fmt.Errorf("marshaling feed: %w", err)
	}
	return data, nil
}
