package workshop

import (
	domain "github.com/oshokin/gmpublish/internal/domain/workshop"
)

// NewLogOn converts domain logon details to a wire frame.
func NewLogOn(details *domain.LogOnDetails) *LogOn {
	return &LogOn{
		Username:      details.Username,
		Password:      details.Password,
		AuthCode:      details.AuthCode,
		TwoFactorCode: details.TwoFactorCode,
		SentryHash:    details.SentryHash,
		MachineName:   details.MachineName,
	}
}

// Details converts the frame back to domain logon details.
func (m *LogOn) Details() *domain.LogOnDetails {
	return &domain.LogOnDetails{
		Username:      m.Username,
		Password:      m.Password,
		AuthCode:      m.AuthCode,
		TwoFactorCode: m.TwoFactorCode,
		SentryHash:    m.SentryHash,
		MachineName:   m.MachineName,
	}
}

// NewMachineAuthAck converts a domain acknowledgment to a wire frame.
func NewMachineAuthAck(resp *domain.MachineAuthResponse) *MachineAuthAck {
	return &MachineAuthAck{
		JobID:           resp.JobID,
		FileName:        resp.FileName,
		Offset:          resp.Offset,
		BytesWritten:    int32(resp.BytesWritten), //nolint:gosec // Chunks are far below 2 GiB.
		FileSize:        resp.FileSize,
		Result:          int32(resp.Result), //nolint:gosec // Result codes are small.
		LastError:       int32(resp.LastError), //nolint:gosec // Error codes are small.
		OneTimePassword: resp.OneTimePassword,
		SentryHash:      resp.SentryHash,
	}
}

// Response converts the acknowledgment back to its domain form.
func (m *MachineAuthAck) Response() *domain.MachineAuthResponse {
	return &domain.MachineAuthResponse{
		JobID:           m.JobID,
		FileName:        m.FileName,
		Offset:          m.Offset,
		BytesWritten:    int(m.BytesWritten),
		FileSize:        m.FileSize,
		Result:          domain.Result(m.Result),
		LastError:       int(m.LastError),
		OneTimePassword: m.OneTimePassword,
		SentryHash:      m.SentryHash,
	}
}

// newMachineAuthUpdate converts a sentry chunk event to a wire frame.
func newMachineAuthUpdate(event *domain.MachineAuthEvent) *MachineAuthUpdate {
	return &MachineAuthUpdate{
		JobID:           event.JobID,
		FileName:        event.FileName,
		Offset:          event.Offset,
		BytesToWrite:    int32(event.BytesToWrite), //nolint:gosec // Chunks are far below 2 GiB.
		Data:            event.Data,
		OneTimePassword: event.OneTimePassword,
	}
}

// Event translates a server frame into the domain event it represents.
// It returns nil for an empty frame.
func (f *ServerFrame) Event() domain.Event {
	switch {
	case f.Welcome != nil:
		return &domain.ConnectedEvent{Result: domain.Result(f.Welcome.Result)}
	case f.LoggedOn != nil:
		return &domain.LoggedOnEvent{
			Result:         domain.Result(f.LoggedOn.Result),
			ExtendedResult: domain.Result(f.LoggedOn.ExtendedResult),
			EmailDomain:    f.LoggedOn.EmailDomain,
		}
	case f.LoggedOff != nil:
		return &domain.LoggedOffEvent{Result: domain.Result(f.LoggedOff.Result)}
	case f.MachineAuth != nil:
		return &domain.MachineAuthEvent{
			JobID:           f.MachineAuth.JobID,
			FileName:        f.MachineAuth.FileName,
			Offset:          f.MachineAuth.Offset,
			BytesToWrite:    int(f.MachineAuth.BytesToWrite),
			Data:            f.MachineAuth.Data,
			OneTimePassword: f.MachineAuth.OneTimePassword,
		}
	default:
		return nil
	}
}

// NewPublishRequest converts a domain create request to a wire message.
func NewPublishRequest(req *domain.CreateListingRequest) *PublishRequest {
	return &PublishRequest{
		AppID:                req.AppID,
		ConsumerAppID:        req.ConsumerAppID,
		CloudFilename:        req.CloudFilename,
		PreviewCloudFilename: req.PreviewCloudFilename,
		Title:                req.Title,
		Description:          req.Description,
		FileType:             uint32(req.FileType),
		Visibility:           uint32(req.Visibility),
		CollectionType:       int32(req.CollectionType), //nolint:gosec // Addon types are small.
		Tags:                 req.Tags,
	}
}

// toDomainCreate converts a wire create request to its domain form.
func toDomainCreate(req *PublishRequest) *domain.CreateListingRequest {
	return &domain.CreateListingRequest{
		AppID:                req.AppID,
		ConsumerAppID:        req.ConsumerAppID,
		CloudFilename:        req.CloudFilename,
		PreviewCloudFilename: req.PreviewCloudFilename,
		Title:                req.Title,
		Description:          req.Description,
		FileType:             domain.FileType(req.FileType),
		Visibility:           domain.Visibility(req.Visibility),
		CollectionType:       int(req.CollectionType),
		Tags:                 req.Tags,
	}
}

// NewUpdateRequest converts a domain update request to a wire message.
func NewUpdateRequest(req *domain.UpdateListingRequest) *UpdateRequest {
	return &UpdateRequest{
		PublishedFileID: req.PublishedFileID,
		AppID:           req.AppID,
		Filename:        req.Filename,
		PreviewFilename: req.PreviewFilename,
		Title:           req.Title,
		Description:     req.Description,
		Visibility:      uint32(req.Visibility),
		Tags:            req.Tags,
		ImageWidth:      int32(req.ImageWidth),  //nolint:gosec // Preview sizes are small.
		ImageHeight:     int32(req.ImageHeight), //nolint:gosec // Preview sizes are small.
	}
}

// toDomainUpdate converts a wire update request to its domain form.
func toDomainUpdate(req *UpdateRequest) *domain.UpdateListingRequest {
	return &domain.UpdateListingRequest{
		PublishedFileID: req.PublishedFileID,
		AppID:           req.AppID,
		Filename:        req.Filename,
		PreviewFilename: req.PreviewFilename,
		Title:           req.Title,
		Description:     req.Description,
		Visibility:      domain.Visibility(req.Visibility),
		Tags:            req.Tags,
		ImageWidth:      int(req.ImageWidth),
		ImageHeight:     int(req.ImageHeight),
	}
}
