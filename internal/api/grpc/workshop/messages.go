package workshop

// ClientFrame is sent by the publisher on the Session stream. Exactly one field is set.
type ClientFrame struct {
	LogOn       *LogOn          `cbor:"log_on,omitempty"`
	LogOff      *LogOff         `cbor:"log_off,omitempty"`
	MachineAuth *MachineAuthAck `cbor:"machine_auth,omitempty"`
}

// ServerFrame is sent by the gateway on the Session stream. Exactly one field is set.
type ServerFrame struct {
	Welcome     *Welcome           `cbor:"welcome,omitempty"`
	LoggedOn    *LoggedOn          `cbor:"logged_on,omitempty"`
	LoggedOff   *LoggedOff         `cbor:"logged_off,omitempty"`
	MachineAuth *MachineAuthUpdate `cbor:"machine_auth,omitempty"`
}

// LogOn requests a logon with the given credentials.
type LogOn struct {
	Username      string `cbor:"username"`
	Password      string `cbor:"password"`
	AuthCode      string `cbor:"auth_code,omitempty"`
	TwoFactorCode string `cbor:"two_factor_code,omitempty"`
	SentryHash    []byte `cbor:"sentry_hash,omitempty"`
	MachineName   string `cbor:"machine_name,omitempty"`
}

// LogOff ends the logged-on session.
type LogOff struct{}

// MachineAuthAck acknowledges a MachineAuthUpdate.
type MachineAuthAck struct {
	JobID           string `cbor:"job_id"`
	FileName        string `cbor:"file_name"`
	Offset          int64  `cbor:"offset"`
	BytesWritten    int32  `cbor:"bytes_written"`
	FileSize        int64  `cbor:"file_size"`
	Result          int32  `cbor:"result"`
	LastError       int32  `cbor:"last_error"`
	OneTimePassword []byte `cbor:"otp,omitempty"`
	SentryHash      []byte `cbor:"sentry_hash,omitempty"`
}

// Welcome is the first frame of every session.
type Welcome struct {
	Result int32 `cbor:"result"`
}

// LoggedOn answers a LogOn frame.
type LoggedOn struct {
	Result         int32  `cbor:"result"`
	ExtendedResult int32  `cbor:"extended_result"`
	EmailDomain    string `cbor:"email_domain,omitempty"`
	SessionToken   string `cbor:"session_token,omitempty"`
}

// LoggedOff answers a LogOff frame.
type LoggedOff struct {
	Result int32 `cbor:"result"`
}

// MachineAuthUpdate carries a sentry chunk to persist.
type MachineAuthUpdate struct {
	JobID           string `cbor:"job_id"`
	FileName        string `cbor:"file_name"`
	Offset          int64  `cbor:"offset"`
	BytesToWrite    int32  `cbor:"bytes_to_write"`
	Data            []byte `cbor:"data"`
	OneTimePassword []byte `cbor:"otp,omitempty"`
}

// UploadChunk is one message of the Upload stream. The first chunk carries the header.
type UploadChunk struct {
	Header *UploadHeader `cbor:"header,omitempty"`
	Data   []byte        `cbor:"data,omitempty"`
}

// UploadHeader describes the uploaded file.
type UploadHeader struct {
	AppID uint32 `cbor:"app_id"`
	Name  string `cbor:"name"`
	SHA1  []byte `cbor:"sha1"`
	Size  int64  `cbor:"size"`
}

// DeleteFileRequest removes a cloud file.
type DeleteFileRequest struct {
	AppID uint32 `cbor:"app_id"`
	Name  string `cbor:"name"`
}

// PublishRequest creates a workshop listing from uploaded cloud files.
type PublishRequest struct {
	AppID                uint32   `cbor:"app_id"`
	ConsumerAppID        uint32   `cbor:"consumer_app_id"`
	CloudFilename        string   `cbor:"cloud_filename"`
	PreviewCloudFilename string   `cbor:"preview_cloud_filename"`
	Title                string   `cbor:"title"`
	Description          string   `cbor:"description"`
	FileType             uint32   `cbor:"file_type"`
	Visibility           uint32   `cbor:"visibility"`
	CollectionType       int32    `cbor:"collection_type"`
	Tags                 []string `cbor:"tags,omitempty"`
}

// UpdateRequest replaces the content and metadata of an existing listing.
type UpdateRequest struct {
	PublishedFileID uint64   `cbor:"published_file_id"`
	AppID           uint32   `cbor:"app_id"`
	Filename        string   `cbor:"filename"`
	PreviewFilename string   `cbor:"preview_filename"`
	Title           string   `cbor:"title"`
	Description     string   `cbor:"description"`
	Visibility      uint32   `cbor:"visibility"`
	Tags            []string `cbor:"tags,omitempty"`
	ImageWidth      int32    `cbor:"image_width"`
	ImageHeight     int32    `cbor:"image_height"`
}
