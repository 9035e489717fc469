package bookings_service_api

import (
	"context"

	"github.com/Domenick1991/itinerary-booking/internal/api/rpc"
	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"google.golang.org/grpc"
)

const ServiceName = "itineraries.v1.BookingsService"

type TokenRequest struct {
	Token string `json:"token"`
}

type ChooseRequest struct {
	Token       string `json:"token"`
	ItineraryID int    `json:"itinerary_id"`
}

type PassengersRequest struct {
	Token      string                   `json:"token"`
	Passengers []domain.PassengerRecord `json:"passengers"`
}

type SelectSeatRequest struct {
	Token string `json:"token"`
	seats.SelectInput
}

type BookingsServer interface {
	Search(ctx context.Context, req *booking.SearchInput) (*booking.SearchResult, error)
	Choose(ctx context.Context, req *ChooseRequest) (*booking.ItineraryView, error)
	GetPassengers(ctx context.Context, req *TokenRequest) (*booking.ItineraryView, error)
	LoadPassengers(ctx context.Context, req *PassengersRequest) (*booking.ItineraryView, error)
	GetSeatMap(ctx context.Context, req *TokenRequest) (*booking.SeatView, error)
	SelectSeat(ctx context.Context, req *SelectSeatRequest) (*booking.SelectResult, error)
	Summary(ctx context.Context, req *TokenRequest) (*booking.Confirmation, error)
	Confirm(ctx context.Context, req *TokenRequest) (*booking.Confirmation, error)
}

// Server exposes the booking flow over gRPC. Callers identify themselves with
// an "authorization" bearer token or an "x-session-id" metadata value.
type Server struct {
	bookings booking.BookingUseCase
	secret   []byte
}

func NewServer(bookings booking.BookingUseCase, jwtSecret string) *Server {
	return &Server{bookings: bookings, secret: []byte(jwtSecret)}
}

func (s *Server) Search(ctx context.Context, req *booking.SearchInput) (*booking.SearchResult, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.Search(ctx, ns, *req)
	return res, rpc.Status(err)
}

func (s *Server) Choose(ctx context.Context, req *ChooseRequest) (*booking.ItineraryView, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.Choose(ctx, ns, req.Token, req.ItineraryID)
	return res, rpc.Status(err)
}

func (s *Server) GetPassengers(ctx context.Context, req *TokenRequest) (*booking.ItineraryView, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.Passengers(ctx, ns, req.Token)
	return res, rpc.Status(err)
}

func (s *Server) LoadPassengers(ctx context.Context, req *PassengersRequest) (*booking.ItineraryView, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.LoadPassengers(ctx, ns, req.Token, req.Passengers)
	return res, rpc.Status(err)
}

func (s *Server) GetSeatMap(ctx context.Context, req *TokenRequest) (*booking.SeatView, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.SeatMap(ctx, ns, req.Token)
	return res, rpc.Status(err)
}

func (s *Server) SelectSeat(ctx context.Context, req *SelectSeatRequest) (*booking.SelectResult, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.SelectSeat(ctx, ns, req.Token, req.SelectInput)
	return res, rpc.Status(err)
}

func (s *Server) Summary(ctx context.Context, req *TokenRequest) (*booking.Confirmation, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.Summary(ctx, ns, req.Token)
	return res, rpc.Status(err)
}

func (s *Server) Confirm(ctx context.Context, req *TokenRequest) (*booking.Confirmation, error) {
	ns, err := rpc.Namespace(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	res, err := s.bookings.Confirm(ctx, ns, req.Token)
	return res, rpc.Status(err)
}

func method(name string) string {
	return "/" + ServiceName + "/" + name
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: rpc.Unary(method("Search"), BookingsServer.Search)},
		{MethodName: "Choose", Handler: rpc.Unary(method("Choose"), BookingsServer.Choose)},
		{MethodName: "GetPassengers", Handler: rpc.Unary(method("GetPassengers"), BookingsServer.GetPassengers)},
		{MethodName: "LoadPassengers", Handler: rpc.Unary(method("LoadPassengers"), BookingsServer.LoadPassengers)},
		{MethodName: "GetSeatMap", Handler: rpc.Unary(method("GetSeatMap"), BookingsServer.GetSeatMap)},
		{MethodName: "SelectSeat", Handler: rpc.Unary(method("SelectSeat"), BookingsServer.SelectSeat)},
		{MethodName: "Summary", Handler: rpc.Unary(method("Summary"), BookingsServer.Summary)},
		{MethodName: "Confirm", Handler: rpc.Unary(method("Confirm"), BookingsServer.Confirm)},
	},
	Metadata: "itineraries/v1/bookings.json",
}

func Register(registrar grpc.ServiceRegistrar, srv BookingsServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// Client calls BookingsService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Search(ctx context.Context, in *booking.SearchInput) (*booking.SearchResult, error) {
	out := new(booking.SearchResult)
	if err := c.cc.Invoke(ctx, method("Search"), in, out, rpc.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SelectSeat(ctx context.Context, in *SelectSeatRequest) (*booking.SelectResult, error) {
	out := new(booking.SelectResult)
	if err := c.cc.Invoke(ctx, method("SelectSeat"), in, out, rpc.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Confirm(ctx context.Context, in *TokenRequest) (*booking.Confirmation, error) {
	out := new(booking.Confirmation)
	if err := c.cc.Invoke(ctx, method("Confirm"), in, out, rpc.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

var _ BookingsServer = (*Server)(nil)
