package flights_service_api

import (
	"context"

	"github.com/Domenick1991/itinerary-booking/internal/api/rpc"
	"github.com/Domenick1991/itinerary-booking/internal/service/flights"
	"google.golang.org/grpc"
)

const ServiceName = "flights.v1.FlightsService"

type ListFlightsRequest struct {
	flights.Filter
}

type ListFlightsResponse struct {
	Flights []flights.FlightView `json:"flights"`
}

type GetFlightRequest struct {
	ID int64 `json:"id"`
}

type GetFlightResponse struct {
	Flight *flights.FlightView `json:"flight"`
}

type FlightsServer interface {
	ListFlights(ctx context.Context, req *ListFlightsRequest) (*ListFlightsResponse, error)
	GetFlight(ctx context.Context, req *GetFlightRequest) (*GetFlightResponse, error)
}

type Server struct {
	flights flights.FlightUseCase
}

func NewServer(flights flights.FlightUseCase) *Server {
	return &Server{flights: flights}
}

func (s *Server) ListFlights(ctx context.Context, req *ListFlightsRequest) (*ListFlightsResponse, error) {
	list, err := s.flights.List(ctx, req.Filter)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &ListFlightsResponse{Flights: list}, nil
}

func (s *Server) GetFlight(ctx context.Context, req *GetFlightRequest) (*GetFlightResponse, error) {
	flight, err := s.flights.GetByID(ctx, req.ID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &GetFlightResponse{Flight: flight}, nil
}

func method(name string) string {
	return "/" + ServiceName + "/" + name
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FlightsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListFlights", Handler: rpc.Unary(method("ListFlights"), FlightsServer.ListFlights)},
		{MethodName: "GetFlight", Handler: rpc.Unary(method("GetFlight"), FlightsServer.GetFlight)},
	},
	Metadata: "flights/v1/flights.json",
}

func Register(registrar grpc.ServiceRegistrar, srv FlightsServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListFlights(ctx context.Context, filter flights.Filter) (*ListFlightsResponse, error) {
	out := new(ListFlightsResponse)
	if err := c.cc.Invoke(ctx, method("ListFlights"), &ListFlightsRequest{Filter: filter}, out, rpc.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFlight(ctx context.Context, id int64) (*GetFlightResponse, error) {
	out := new(GetFlightResponse)
	if err := c.cc.Invoke(ctx, method("GetFlight"), &GetFlightRequest{ID: id}, out, rpc.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

var _ FlightsServer = (*Server)(nil)
