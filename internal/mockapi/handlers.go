package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jogardn/orders-client/pkg/models"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.OrderCreateParams
	if err := decodeParams(r, &params); err != nil {
		s.respond(w, r, nil, err)
		return
	}

	order, err := s.CreateOrder(r.Context(), &params)
	if err == nil {
		err = s.expandOrder(order, params.Expand, "")
	}
	s.respond(w, r, order, err)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	order, err := s.RetrieveOrder(r.Context(), mux.Vars(r)["id"])
	if err == nil {
		err = s.expandOrder(order, r.URL.Query()["expand[]"], "")
	}
	s.respond(w, r, order, err)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var params models.OrderUpdateParams
	if err := decodeParams(r, &params); err != nil {
		s.respond(w, r, nil, err)
		return
	}

	order, err := s.UpdateOrder(r.Context(), mux.Vars(r)["id"], &params)
	if err == nil {
		err = s.expandOrder(order, params.Expand, "")
	}
	s.respond(w, r, order, err)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := models.ParseOrderListParams(r.URL.Query())
	if err != nil {
		apiErr := invalidRequest(err.Error())
		var unknown *models.UnknownParamError
		if errors.As(err, &unknown) {
			apiErr = apiErr.WithParam(unknown.Key)
		}
		s.respond(w, r, nil, apiErr)
		return
	}

	list, err := s.ListOrders(r.Context(), params)
	if err == nil {
		for i := range list.Data {
			if err = s.expandOrder(&list.Data[i], params.Expand, "data."); err != nil {
				break
			}
		}
	}
	s.respond(w, r, list, err)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var params models.OrderPayParams
	if err := decodeParams(r, &params); err != nil {
		s.respond(w, r, nil, err)
		return
	}

	order, err := s.PayOrder(r.Context(), mux.Vars(r)["id"], &params)
	if err == nil {
		err = s.expandOrder(order, params.Expand, "")
	}
	s.respond(w, r, order, err)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var params models.OrderReturnOrderParams
	if err := decodeParams(r, &params); err != nil {
		s.respond(w, r, nil, err)
		return
	}

	ret, err := s.ReturnOrder(r.Context(), mux.Vars(r)["id"], &params)
	if err == nil {
		err = s.expandReturn(r, ret, params.Expand)
	}
	s.respond(w, r, ret, err)
}

// expandReturn inlines the returned order when asked for.
func (s *Server) expandReturn(r *http.Request, ret *models.OrderReturn, expand []string) error {
	for _, field := range expand {
		if field != "order" {
			return invalidRequest(fmt.Sprintf("This property cannot be expanded (%s).", field)).WithParam("expand")
		}
		order, err := s.RetrieveOrder(r.Context(), ret.Order.OrZero().ID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to expand order: %w", err)
		}
		ret.Order = models.NullableOf(models.Expandable{ID: order.GetID(), Object: data})
	}
	return nil
}
