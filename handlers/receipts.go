package handlers

import (
	"errors"
	"net/http"

	"payflow/ledger"
	"payflow/models"
	"payflow/store"
)

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.store.ListReceipts(r.Context(), userID(r))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// createReceipt prices the items server side; totals sent by the client are
// ignored.
func (s *Server) createReceipt(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	rawItems, _, err := in.objects("items")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	if len(rawItems) == 0 {
		writeError(w, r, http.StatusBadRequest, "ReceiptItemsRequired")
		return
	}

	items := make([]models.ReceiptItem, 0, len(rawItems))
	for _, it := range rawItems {
		quantity, ok := it.integer("quantity")
		if !ok {
			quantity = 1
		}
		items = append(items, models.ReceiptItem{
			Date:        it.str("date"),
			Category:    it.str("category"),
			Description: it.str("description"),
			Quantity:    quantity,
			UnitPrice:   it.numberOr("unit_price", 0),
			TaxRate:     it.numberOr("tax_rate", 0),
		})
	}

	receipt := models.Receipt{
		UserID: userID(r),
		Title:  in.str("title"),
		Date:   in.str("date"),
		Note:   in.str("note"),
		Items:  items,
	}
	ledger.PriceItems(receipt.Items).Apply(&receipt)

	if err := s.store.CreateReceipt(r.Context(), &receipt); err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"id": receipt.ID})
}

// receiptDocument returns one receipt with its items, the data a client
// needs to render a printable document.
func (s *Server) receiptDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	receipt, err := s.store.GetReceipt(r.Context(), userID(r), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	deleteWith(w, r, func(uid, id int64) error { return s.store.DeleteReceipt(r.Context(), uid, id) })
}
