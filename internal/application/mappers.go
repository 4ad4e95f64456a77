package application

import (
	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
)

// ToOrderDTO converts an Order aggregate to its DTO
func ToOrderDTO(order *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemDTO{
			ItemID:            item.ItemID,
			SKU:               item.SKU,
			ProductName:       item.ProductName,
			Quantity:          item.Quantity,
			QuantityAllocated: item.QuantityAllocated,
			QuantityPicked:    item.QuantityPicked,
			Matched:           item.Matched,
		}
	}

	return OrderDTO{
		OrderID:      order.OrderID,
		CustomerID:   order.CustomerID,
		WarehouseID:  order.WarehouseID,
		Priority:     order.Priority,
		Status:       string(order.Status),
		CurrentStep:  order.CurrentStep(),
		HoldReason:   order.HoldReason,
		Items:        items,
		Carrier:      order.Carrier,
		TrackingCode: order.TrackingCode,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		AllocatedAt:  order.AllocatedAt,
		ShippedAt:    order.ShippedAt,
	}
}

// ToAllocationDTO converts an Allocation to its DTO
func ToAllocationDTO(alloc *domain.Allocation) AllocationDTO {
	return AllocationDTO{
		AllocationID:    alloc.AllocationID,
		OrderItemID:     alloc.OrderItemID,
		SKU:             alloc.SKU,
		InventoryUnitID: alloc.InventoryUnitID,
		LocationID:      alloc.Location.LocationID,
		Quantity:        alloc.Quantity,
		QuantityPicked:  alloc.QuantityPicked,
		Status:          string(alloc.Status),
	}
}

// ToTaskDTO converts a WorkTask aggregate to its DTO
func ToTaskDTO(task *domain.WorkTask) *TaskDTO {
	items := make([]TaskItemDTO, len(task.Items))
	for i, item := range task.Items {
		items[i] = ToTaskItemDTO(&item)
	}

	return &TaskDTO{
		TaskID:         task.TaskID,
		OrderID:        task.OrderID,
		Type:           string(task.Type),
		Status:         string(task.Status),
		Items:          items,
		TotalItems:     task.TotalItems,
		CompletedItems: task.CompletedItems,
		ShortItems:     task.ShortItems,
		Progress:       task.Progress(),
		PackedWeight:   task.PackedWeight,
		WeightUnit:     task.WeightUnit,
		Dimensions:     task.PackedDims,
		CreatedAt:      task.CreatedAt,
		StartedAt:      task.StartedAt,
		CompletedAt:    task.CompletedAt,
	}
}

// ToTaskItemDTO converts one task line to its DTO
func ToTaskItemDTO(item *domain.TaskItem) TaskItemDTO {
	return TaskItemDTO{
		ItemID:            item.ItemID,
		Sequence:          item.Sequence,
		SKU:               item.SKU,
		ProductName:       item.ProductName,
		Quantity:          item.Quantity,
		QuantityCompleted: item.QuantityCompleted,
		Status:            string(item.Status),
		LocationID:        item.Location.LocationID,
		LocationZone:      item.Location.Zone,
		LocationLabel:     item.Location.Describe(),
		ShortReason:       item.ShortReason,
	}
}

// ToBinDTO converts a PickBin aggregate to its DTO
func ToBinDTO(bin *domain.PickBin) *BinDTO {
	items := make([]BinItemDTO, len(bin.Items))
	for i, item := range bin.Items {
		items[i] = BinItemDTO{
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			VerifiedQty: item.VerifiedQty,
		}
	}

	return &BinDTO{
		BinID:      bin.BinID,
		OrderID:    bin.OrderID,
		PickTaskID: bin.PickTaskID,
		Barcode:    bin.Barcode,
		Status:     string(bin.Status),
		Items:      items,
		PackTaskID: bin.PackTaskID,
		CreatedAt:  bin.CreatedAt,
		VerifiedAt: bin.VerifiedAt,
		PackedAt:   bin.PackedAt,
	}
}

// ToEventDTO converts an activity log entry to its DTO
func ToEventDTO(event *domain.FulfillmentEvent) EventDTO {
	return EventDTO{
		EventID:       event.EventID,
		OrderID:       event.OrderID,
		Type:          string(event.Type),
		Payload:       event.Payload,
		ActorID:       event.ActorID,
		CorrelationID: event.CorrelationID,
		CreatedAt:     event.CreatedAt,
	}
}

// ToEventDTOs converts a slice of activity log entries
func ToEventDTOs(events []*domain.FulfillmentEvent) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, event := range events {
		dtos[i] = ToEventDTO(event)
	}
	return dtos
}
